package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		logrus.Errorf("booklist: %v", err)
		os.Exit(1)
	}
}
