package utils

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeIP(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"10.0.0.1":          "10.0.0.1",
		"10.0.0.1:8080":     "10.0.0.1",
		"1.2.3.4, 5.6.7.8":  "1.2.3.4",
		"::ffff:192.0.2.1":  "192.0.2.1",
		"[2001:db8::1]:443": "2001:db8::1",
		"not-an-ip":         "not-an-ip",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeIP(in), in)
	}
}

func TestGetClientIPAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.RemoteAddr = "192.168.1.9:5555"
	assert.Equal(t, "192.168.1.9", GetClientIP(c))

	c.Request.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", GetClientIP(c))

	c.Request.Header.Set(RequestIDHeader, "hdr-id")
	assert.Equal(t, "hdr-id", GetRequestID(c))
	c.Set(string(ContextKeyRequestID), "ctx-id")
	assert.Equal(t, "ctx-id", GetRequestID(c))
}

func TestContextValues(t *testing.T) {
	ctx := context.WithValue(context.Background(), ContextKeyClientIP, "1.1.1.1")
	ctx = context.WithValue(ctx, ContextKeyRequestID, "rid")
	assert.Equal(t, "1.1.1.1", GetClientIPFromContext(ctx))
	assert.Equal(t, "rid", GetRequestIDFromContext(ctx))
	assert.Empty(t, GetClientIPFromContext(context.Background()))
}
