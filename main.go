package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// .env 不存在時沿用系統環境變數
	_ = godotenv.Load()

	cobra.CheckErr(newRootCmd().Execute())
}
