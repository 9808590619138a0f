package batch

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"text/template"
)

// Directives are the #SBATCH options of a job. Zero values are left out so the
// scheduler's defaults apply.
type Directives struct {
	JobName   string
	Partition string // resource class
	Time      string // wall-clock limit, e.g. 01:00:00
	NTasks    int
	Nodes     int
	Output    string // scheduler log of the job
	Extra     []string
}

type Script struct {
	Directives
	Body string
}

var scriptTemplate = template.Must(template.New("sbatch").Parse(`#!/bin/bash
{{- with .JobName}}
#SBATCH --job-name={{.}}
{{- end}}
{{- with .Partition}}
#SBATCH --partition={{.}}
{{- end}}
{{- with .Time}}
#SBATCH --time={{.}}
{{- end}}
{{- if gt .NTasks 0}}
#SBATCH --ntasks={{.NTasks}}
{{- end}}
{{- if gt .Nodes 0}}
#SBATCH --nodes={{.Nodes}}
{{- end}}
{{- with .Output}}
#SBATCH --output={{.}}
{{- end}}
{{- range .Extra}}
#SBATCH {{.}}
{{- end}}

{{.Body}}
`))

// Render writes the batch script: the interpreter line, one #SBATCH line per
// set directive, a blank line and the body.
func (s Script) Render(w io.Writer) error {
	s.Body = strings.TrimRight(s.Body, "\n")
	if err := scriptTemplate.Execute(w, s); err != nil {
		return fmt.Errorf("render batch script: %w", err)
	}
	return nil
}

func (s Script) WriteFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return fmt.Errorf("write batch script: %w", err)
	}
	if err := s.Render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LaunchArgs describe the launcher invocation a job runs.
type LaunchArgs struct {
	First     int
	Runs      int
	Output    string
	Wrapper   string
	KeepOrder bool
	Flags     []string // passed through to the launcher as is
	Template  []string
}

// LauncherBody is the job body running the launcher over First..First+Runs-1.
// The launcher reads SLURM_NTASKS itself, so the body does not pass -j.
func LauncherBody(launcher string, a LaunchArgs) string {
	argv := []string{launcher}
	if a.First != 1 {
		argv = append(argv, "-first", strconv.Itoa(a.First))
	}
	argv = append(argv, "-runs", strconv.Itoa(a.Runs))
	if a.Output != "" {
		argv = append(argv, "-output", a.Output)
	}
	if a.Wrapper != "" {
		argv = append(argv, "-wrapper", a.Wrapper)
	}
	if a.KeepOrder {
		argv = append(argv, "-keep-order")
	}
	argv = append(argv, a.Flags...)
	argv = append(argv, "--")
	argv = append(argv, a.Template...)

	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = Quote(arg)
	}
	return strings.Join(quoted, " ") + "\n"
}

var safeWord = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// Quote quotes s for a POSIX shell.
func Quote(s string) string {
	if safeWord.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
