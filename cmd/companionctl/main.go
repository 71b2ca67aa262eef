package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var (
	apiFlag string
	rootCmd = &cobra.Command{
		Use:   "companionctl",
		Short: "CLI client for the companion call service REST API",
	}
)

// client builds a resty client pointed at the configured service.
func client() *resty.Client {
	return resty.New().
		SetBaseURL(apiFlag).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")
}

// printResponse writes the body to stdout and turns non-2xx into an error.
func printResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	_, _ = fmt.Fprintln(os.Stdout, resp.String())
	return nil
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Companion service base URL")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
