package commands

import (
	"database/sql"
	"fmt"
	"net"
	"os"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/qntx-runtime/config"
)

// DoctorCmd runs a battery of environment checks and prints a pass/fail
// table, in the teacher's pterm.Info/Success/Warning/Error idiom.
var DoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the runtime environment is ready to start",
	Long:  "Validate configuration, diagnostics storage, extension search paths, and conduit port availability.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			pterm.Error.Printf("configuration failed to load: %v\n", err)
			return err
		}
		pterm.Success.Println("configuration loaded")

		checks := []check{
			checkDiagnostics(cfg),
			checkExtensionPaths(cfg),
			checkConduitPort(cfg),
		}

		failures := 0
		data := pterm.TableData{{"Check", "Status", "Detail"}}
		for _, c := range checks {
			status := "ok"
			if c.err != nil {
				status = "FAIL"
				failures++
			}
			detail := c.detail
			if c.err != nil {
				detail = c.err.Error()
			}
			data = append(data, []string{c.name, status, detail})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}

		if failures > 0 {
			pterm.Warning.Printf("%d check(s) failed\n", failures)
			return fmt.Errorf("%d doctor check(s) failed", failures)
		}
		pterm.Success.Println("all checks passed")
		return nil
	},
}

type check struct {
	name   string
	detail string
	err    error
}

func checkDiagnostics(cfg *config.Config) check {
	db, err := sql.Open("sqlite3", cfg.Diagnostics.Path)
	if err != nil {
		return check{name: "diagnostics store", err: err}
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return check{name: "diagnostics store", err: err}
	}
	return check{name: "diagnostics store", detail: cfg.Diagnostics.Path}
}

func checkExtensionPaths(cfg *config.Config) check {
	if len(cfg.Extension.Enabled) == 0 {
		return check{name: "extension search paths", detail: "extensions disabled"}
	}
	for _, p := range cfg.Extension.Paths {
		if _, err := os.Stat(p); err != nil {
			return check{name: "extension search paths", err: fmt.Errorf("%s: %w", p, err)}
		}
	}
	return check{name: "extension search paths", detail: fmt.Sprintf("%d path(s)", len(cfg.Extension.Paths))}
}

func checkConduitPort(cfg *config.Config) check {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Server.ConduitPort))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return check{name: "conduit port", err: err}
	}
	ln.Close()
	return check{name: "conduit port", detail: addr}
}
