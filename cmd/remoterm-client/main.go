package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jD91mZM2/remoterm/client"
)

var rootCmd = &cobra.Command{
	Use:   "remoterm-client",
	Short: "Attach this terminal to a remoterm-server session",
	Long: `remoterm-client dials a remoterm-server, pins its certificate to the
fingerprint it was given out of band, proves it knows the matching session
password, then mirrors the remote shell on this terminal until either side
closes the connection.`,
	RunE: runClient,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
}

func runClient(cmd *cobra.Command, _ []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}

	stdin := bufio.NewReader(os.Stdin)

	addrInput, err := prompt(stdin, "Server ip:port: ")
	if err != nil {
		return err
	}
	passwordInput, err := prompt(stdin, "Session password: ")
	if err != nil {
		return err
	}

	addr, fingerprint, password, err := client.Prompt(addrInput, passwordInput)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("Connecting to %s...\n", addr)

	err = client.Run(ctx, client.Options{
		Address:     addr,
		Fingerprint: fingerprint,
		Password:    password,
		Logger:      logger,
		TerminalFd:  int(os.Stdin.Fd()),
		DialTimeout: 10 * time.Second,
	})
	if err != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func prompt(r *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %q: %w", label, err)
	}
	return line, nil
}
