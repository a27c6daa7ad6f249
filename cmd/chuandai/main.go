// Package main 是 CLI 客户端的入口点
package main

import "chuan-dai/cmd/chuandai/cmd"

func main() {
	cmd.Execute()
}
