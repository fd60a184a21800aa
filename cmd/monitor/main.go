/*
 * @description: 安全监控服务入口
 * @func: serve 启动 HTTP/NATS 服务；migrate 创建 MySQL 表结构
 */

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
