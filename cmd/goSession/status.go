package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// SessionStatus is the machine-readable form of the status command.
type SessionStatus struct {
	Route         string `json:"route"`
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	Role          string `json:"role,omitempty"`
	Defaulted     bool   `json:"defaulted"`
	RestoreMillis int64  `json:"restore_ms"`
}

type statusConfig struct {
	jsonOutput bool
}

func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the saved session and the screen the app would open on",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	client, closeFn, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	route, err := client.ResolveRoute(contextOf(cmd))
	if err != nil {
		return err
	}
	out, _ := client.Outcome()

	st := SessionStatus{
		Route:         route.String(),
		Authenticated: client.IsAuthenticated(),
		Defaulted:     out.Defaulted,
		RestoreMillis: out.Duration.Milliseconds(),
	}
	if u := client.User(); u != nil {
		st.UserID, st.Name, st.Email, st.Role = u.ID, u.Name, u.Email, u.Role
	}

	if cfg.jsonOutput {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Print(formatStatusTable(st))
	return nil
}

func formatStatusTable(st SessionStatus) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "ROUTE\t%s\n", st.Route)
	_, _ = fmt.Fprintf(w, "AUTHENTICATED\t%t\n", st.Authenticated)
	if st.Authenticated {
		_, _ = fmt.Fprintf(w, "USER\t%s <%s>\n", st.Name, st.Email)
		_, _ = fmt.Fprintf(w, "ROLE\t%s\n", st.Role)
	}
	_, _ = fmt.Fprintf(w, "RESTORE\t%s\n", (time.Duration(st.RestoreMillis) * time.Millisecond).String())
	_ = w.Flush()
	return b.String()
}
