package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kursadbilgin/hme-generator/internal/provider"
	"github.com/spf13/cobra"
)

const unauthorizedHint = "hint: the iCloud session was rejected, refresh the cookie in COOKIE_FILE (default cookie.txt)"

var (
	envFile string
	rootCmd = &cobra.Command{
		Use:   "hme",
		Short: "Bulk Hide My Email address generator",
		Long: `hme creates and reserves iCloud Hide My Email addresses in bulk.
Requests are split into batches that respect the service's rate limit,
with a cooldown between batches, and every reserved address is appended
to the emails file as soon as its batch completes.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, err)
	if provider.IsUnauthorized(err) {
		fmt.Fprintln(w, unauthorizedHint)
	}
}
