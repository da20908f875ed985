package main

import (
	"errors"
	"fmt"
	"os"

	"pv-go/internal/app"
	"pv-go/internal/pv"

	"github.com/spf13/cobra"
)

// syncRequest builds the request for the sync command's flags.
func syncRequest(cmd *cobra.Command, a *app.PVApp) (pv.SyncRequest, error) {
	upload, _ := cmd.Flags().GetBool("upload")
	download, _ := cmd.Flags().GetBool("download")
	force, _ := cmd.Flags().GetBool("force")
	prefer, _ := cmd.Flags().GetString("prefer")

	side, err := pv.ParseSide(prefer)
	if err != nil {
		return pv.SyncRequest{}, err
	}
	if side != pv.SideNone && !force {
		return pv.SyncRequest{}, fmt.Errorf("--prefer only applies with --force")
	}

	req := a.DefaultSyncRequest(force)
	switch {
	case upload:
		req.Mode = pv.ModeUploadOnly
	case download:
		req.Mode = pv.ModeDownloadOnly
	}
	req.Prefer = side
	return req, nil
}

// runSync runs one cycle and prints its outcome. Conflicts are listed with
// a hint before the error is returned.
func runSync(cmd *cobra.Command, a *app.PVApp, req pv.SyncRequest) error {
	report, err := a.Sync(cmd.Context(), req)
	if err != nil {
		var conflictErr *pv.ConflictError
		if errors.As(err, &conflictErr) {
			printConflicts(os.Stderr, conflictErr.Conflicts)
			fmt.Fprintln(os.Stderr, "Nothing was written. Re-run with --force (and --prefer local|remote) to settle them.")
		}
		return fmt.Errorf("sync failed: %w", err)
	}

	printReport(os.Stdout, report)
	return nil
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Merge the local library with the remote mirror",
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		a, err := newApp("Sync")
		if err != nil {
			return err
		}
		defer a.Close()

		req, err := syncRequest(cmd, a)
		if err != nil {
			return err
		}

		if dryRun {
			plan, err := a.PlanSync(cmd.Context(), req.Mode)
			if err != nil {
				return err
			}
			printPlan(os.Stdout, plan)
			return nil
		}

		return runSync(cmd, a, req)
	},
}

// push command
var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Overwrite the remote mirror with the local library",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Push")
		if err != nil {
			return err
		}
		defer a.Close()

		return runSync(cmd, a, pv.SyncRequest{Mode: pv.ModeForceUpload})
	},
}

// pull command
var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Overwrite the local library with the remote mirror",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Pull")
		if err != nil {
			return err
		}
		defer a.Close()

		return runSync(cmd, a, pv.SyncRequest{Mode: pv.ModeForceDownload})
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View sync history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No sync cycles recorded.")
			return nil
		}
		printHistory(os.Stdout, records)
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write the library to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		a, err := newApp("Export")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.ExportFile(args[0], format)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		fmt.Printf("Exported %d prompt(s) to %s\n", n, args[0])
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Merge prompts from a file into the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		force, _ := cmd.Flags().GetBool("force")

		a, err := newApp("Import")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.ImportFile(args[0], format, force)
		if err != nil {
			var conflictErr *pv.ConflictError
			if errors.As(err, &conflictErr) {
				printConflicts(os.Stderr, conflictErr.Conflicts)
				fmt.Fprintln(os.Stderr, "Nothing was imported. Re-run with --force to take the file's versions.")
			}
			return fmt.Errorf("import failed: %w", err)
		}

		fmt.Printf("Imported %d prompt(s) from %s\n", n, args[0])
		return nil
	},
}
