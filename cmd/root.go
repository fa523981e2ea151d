package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "orders",
	Short: "Order and payment reconciliation service",
	Long:  "A multi-tenant commerce service reconciling order and payment state across COD, manual UPI, and gateway webhook rails.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
