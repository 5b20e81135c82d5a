package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// runCommand executes the root command with args and returns stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand()

	want := []string{"job", "matches", "combine", "invalidate", "migrate"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestGetCLIContextWithoutInit(t *testing.T) {
	cmd := &cobra.Command{Use: "orphan"}
	if _, err := GetCLIContext(cmd); err == nil {
		t.Fatal("expected error for uninitialized context")
	}
}

func TestPersistentPreRunBuildsContext(t *testing.T) {
	root := NewRootCommand()
	probe := &cobra.Command{
		Use: "probe",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cliCtx.Logger == nil {
				t.Error("logger not initialized")
			}
			if cliCtx.Client == nil {
				t.Error("client not initialized")
			}
			if cliCtx.OutputFormat != "json" {
				t.Errorf("output format = %q, want json", cliCtx.OutputFormat)
			}
			return nil
		},
	}
	root.AddCommand(probe)
	root.SetArgs([]string{"--server", "http://localhost:18080", "-o", "json", "probe"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestJobGetPrintsJSON(t *testing.T) {
	var gotPath, gotTenant string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTenant = r.Header.Get("X-Tenant-ID")
		fmt.Fprint(w, `{"data":{"id":"job-1","reference":"US111A","status":"completed"}}`)
	}))
	defer srv.Close()

	out, err := runCommand(t,
		"--server", srv.URL, "--tenant", "t1", "--project", "p1",
		"-o", "json", "job", "get", "job-1")
	if err != nil {
		t.Fatalf("job get: %v", err)
	}
	if gotPath != "/api/v1/citation/jobs/job-1" {
		t.Errorf("path = %q", gotPath)
	}
	if gotTenant != "t1" {
		t.Errorf("tenant header = %q", gotTenant)
	}

	var job map[string]interface{}
	if err := json.Unmarshal([]byte(out), &job); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, out)
	}
	if job["status"] != "completed" {
		t.Errorf("status = %v", job["status"])
	}
}

func TestJobListTableOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"id":"job-1","reference":"US111A","status":"completed"},
			{"id":"job-2","reference":"US222B","status":"pending"}
		]}`)
	}))
	defer srv.Close()

	out, err := runCommand(t,
		"--server", srv.URL, "--tenant", "t1", "--project", "p1",
		"-o", "table", "job", "list", "--search", "sh-1")
	if err != nil {
		t.Fatalf("job list: %v", err)
	}
	if !strings.Contains(out, "US111A") || !strings.Contains(out, "US222B") {
		t.Errorf("table output missing rows:\n%s", out)
	}
	if !strings.Contains(out, "REFERENCE") {
		t.Errorf("table output missing header:\n%s", out)
	}
}

func TestJobEnqueueRequiresFlags(t *testing.T) {
	if _, err := runCommand(t, "job", "enqueue"); err == nil {
		t.Fatal("expected missing-flag error")
	}
}

func TestInvalidateCommand(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out, err := runCommand(t,
		"--server", srv.URL, "--tenant", "t1", "--project", "p1",
		"invalidate", "p1")
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/v1/workspace/p1/invalidate" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if !strings.Contains(out, "OK:") {
		t.Errorf("missing confirmation:\n%s", out)
	}
}

func TestMigrateRequiresConfig(t *testing.T) {
	if _, err := runCommand(t, "migrate", "status"); err == nil {
		t.Fatal("expected error without database configuration")
	}
}

func TestFormatTable(t *testing.T) {
	got := FormatTable(
		[]string{"ID", "STATUS"},
		[][]string{{"job-1", "completed"}, {"job-22", "pending"}},
	)

	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("line count = %d, want 4\n%s", len(lines), got)
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "STATUS") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "---") {
		t.Errorf("separator = %q", lines[1])
	}
	if !strings.HasPrefix(lines[3], "job-22") {
		t.Errorf("row = %q", lines[3])
	}
}

func TestFormatTableEmptyHeaders(t *testing.T) {
	if got := FormatTable(nil, nil); got != "" {
		t.Errorf("FormatTable(nil) = %q, want empty", got)
	}
}

//Personal.AI order the ending
