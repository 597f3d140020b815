package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.gatech.edu/ECEInnovation/bass/assembler"
	"github.gatech.edu/ECEInnovation/bass/config"
	"github.gatech.edu/ECEInnovation/bass/languageServer"
	"github.gatech.edu/ECEInnovation/bass/playground"
	"github.gatech.edu/ECEInnovation/bass/util"
)

var languageServerCmd = &cobra.Command{
	Use:   "languageServer [debug | tcp [addr]]",
	Short: "Run the language server on stdio, or on TCP for remote debugging",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := config.Load(options.configFile)
		if err != nil {
			return err
		}
		languageServer.ArchitecturePaths = architecturePaths(conf)

		switch {
		case len(args) == 0:
		case args[0] == "debug" && len(args) == 1:
			util.LoggingEnabled = true
		case args[0] == "tcp":
			addr := ":2035"
			if len(args) == 2 {
				addr = args[1]
			}
			return languageServer.ListenAndServeTCP(addr)
		default:
			return fmt.Errorf("invalid arguments: %s", strings.Join(args, " "))
		}
		languageServer.ListenAndServe()
		return nil
	},
}

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assembler playground over a websocket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := config.Load(options.configFile)
		if err != nil {
			return err
		}
		server := &playground.Server{ArchitecturePaths: architecturePaths(conf)}
		return server.ListenAndServe(serveAddr)
	},
}

var tableCmd = &cobra.Command{
	Use:   "table name",
	Short: "Compile an architecture table and dump its rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := config.Load(options.configFile)
		if err != nil {
			return err
		}
		a := assembler.New()
		a.ArchitecturePaths = architecturePaths(conf)
		architecture, err := a.CompileArchitecture(args[0])
		if err != nil {
			return err
		}
		pp.Println(architecture.Opcodes())
		return nil
	},
}

var replCmd = &cobra.Command{
	Use:   "repl [source...]",
	Short: "Evaluate expressions against the symbols of assembled sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := config.Load(options.configFile)
		if err != nil {
			return err
		}
		return repl(conf, args)
	},
}

const historyFile = ".bass_history"

func repl(conf *config.Config, sources []string) error {
	a := newSession(conf)
	a.Sandboxed = true
	a.SetTarget(assembler.NewMemoryTarget())
	for _, source := range sources {
		if !a.Source(source) {
			return errAssemblyFailed
		}
	}
	if err := a.Assemble(options.strict || conf.Strict); err != nil {
		return errAssemblyFailed
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		line, err := ln.Prompt("bass> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case ":quit":
			return nil
		case ":constants":
			pp.Println(a.Constants())
			ln.AppendHistory(line)
			continue
		}

		value, err := a.Evaluate(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Printf("%d 0x%X\n", value, uint64(value))
		ln.AppendHistory(line)
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":2035", "listen `address`")
	rootCmd.AddCommand(languageServerCmd, serveCmd, tableCmd, replCmd)
}
