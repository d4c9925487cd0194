package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jD91mZM2/remoterm/pkg/config"
	"github.com/jD91mZM2/remoterm/server"
)

var rootCmd = &cobra.Command{
	Use:   "remoterm-server [port]",
	Short: "Expose this machine's shell to one remote remoterm client",
	Long: `remoterm-server opens a PTY, spawns the local shell on it, and waits for
exactly one TLS-authenticated remote client to attach.

It prints a one-time fingerprint-password string; read it to whoever is
running remoterm-client over a channel you both trust (e.g. a phone call).
The client pins the server's certificate to the fingerprint half and proves
it was told the password half, so no certificate authority is involved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServer,
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

func runServer(cmd *cobra.Command, args []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}

	port := 0
	if len(args) == 1 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid port %q, using default %d\n", args[0], config.DefaultPort)
		} else {
			port = parsed
		}
	}

	shellPath := config.Shell(nil)

	fmt.Println(color.New(color.Bold).Sprint("Welcome to remoterm!"))
	fmt.Printf("Using shell: %s\n", shellPath)

	spinner := newWaitingSpinner("Waiting for connection")

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := server.Options{
		Port:       port,
		ShellPath:  shellPath,
		Logger:     logger,
		TerminalFd: int(os.Stdin.Fd()),
		OnListening: func(addr net.Addr, sidePassword string) {
			fmt.Printf("Listening on %s\n", addr)
			fmt.Println(color.New(color.FgYellow, color.Bold).Sprint("Session password: ") + sidePassword)
			fmt.Println("Read this to the other side, then:")
			spinner.Start()
		},
	}

	err = server.Run(ctx, opts)
	spinner.Stop()
	if err != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
