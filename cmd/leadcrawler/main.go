package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/JakeFAU/law-leads-crawler/cmd"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		zap.L().Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
