package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"telecom-chat/internal/config"
	"telecom-chat/internal/repository/sqlstore"
	"telecom-chat/internal/service"
)

// Swapped out in tests.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

func runHashPassword(cmd *cobra.Command, _ []string) error {
	cost, err := cmd.Flags().GetInt("cost")
	if err != nil {
		return err
	}
	password, err := promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), int(os.Stdin.Fd()))
	if err != nil {
		return err
	}
	hash, err := service.HashPassword(password, cost)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

// promptPassword reads without echo from a terminal, otherwise the first line of in.
func promptPassword(in io.Reader, prompt io.Writer, fd int) (string, error) {
	if isTerminal(fd) {
		fmt.Fprint(prompt, "Password: ")
		pw, err := readPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runInitDB(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	db, err := sqlstore.Open(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	records := service.NewRecordService(
		sqlstore.NewFileRepository(db),
		sqlstore.NewCDRRepository(db),
		sqlstore.NewRevenueRepository(db),
	)
	if err := records.Init(cmd.Context()); err != nil {
		return err
	}
	counts, err := records.Counts(cmd.Context())
	if err != nil {
		return err
	}
	logger.WithField("dialect", db.Dialect()).Infof("tables ready: %d files, %d cdr records, %d revenue records",
		counts.Files, counts.CDRRecords, counts.RevenueRecords)
	return nil
}
