package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/httpclient"
	"github.com/luminahq/lumina/internal/project"
	"github.com/luminahq/lumina/internal/telemetry"
)

type runFlags struct {
	project  string
	env      string
	timeout  time.Duration
	insecure bool
	noFollow bool
	headers  bool
	asJSON   bool
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run <request>",
		Short: "Send one stored request and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loadProject(f.project)
			if err != nil {
				return err
			}
			opts := httpclient.Options{
				Timeout:            a.settings.RequestTimeout.Std(),
				FollowRedirects:    !f.noFollow,
				InsecureSkipVerify: a.settings.InsecureSkipVerify || f.insecure,
			}
			if f.timeout > 0 {
				opts.Timeout = f.timeout
			}
			resp, err := runRequest(cmd.Context(), p, args[0], f.env, opts)
			if err != nil {
				return err
			}
			if f.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(resp); err != nil {
					return err
				}
			} else {
				printResponse(cmd.OutOrStdout(), resp, f.headers)
			}
			if resp.Error != "" {
				return errors.New(resp.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.project, "project", "p", "", "project id or name (default: first project)")
	cmd.Flags().StringVarP(&f.env, "env", "e", "", "environment id or name to activate for this run")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "request timeout (default from settings)")
	cmd.Flags().BoolVar(&f.insecure, "insecure", false, "skip TLS certificate verification")
	cmd.Flags().BoolVar(&f.noFollow, "no-follow", false, "do not follow redirects")
	cmd.Flags().BoolVarP(&f.headers, "include", "i", false, "print response headers")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the normalized response as JSON")
	return cmd
}

// runRequest executes a request of p with an optional environment override.
// The override only lives for this call and is never written back.
func runRequest(ctx context.Context, p *project.Project, ref, env string, opts httpclient.Options) (*httpclient.Response, error) {
	req, err := findRequest(p, ref)
	if err != nil {
		return nil, err
	}
	if env != "" {
		id, err := resolveEnvironment(p, env)
		if err != nil {
			return nil, err
		}
		p.SetActiveEnvironment(id)
	}
	tmpl, variables, ok := p.ExecutionInput(req.ID)
	if !ok {
		return nil, errdef.New(errdef.CodeNotFound, "request %s not found", req.ID)
	}

	client := httpclient.NewClient(opts)
	client.SetProjectID(p.ID())
	instr, err := telemetry.New(telemetry.ConfigFromEnv(os.Getenv))
	if err == nil {
		client.SetTelemetry(instr)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = instr.Shutdown(sctx)
		}()
	}
	return client.Execute(ctx, tmpl, variables), nil
}

func resolveEnvironment(p *project.Project, ref string) (string, error) {
	envs := p.Environments()
	for _, e := range envs {
		if e.ID == ref {
			return e.ID, nil
		}
	}
	for _, e := range envs {
		if strings.EqualFold(e.Name, ref) {
			return e.ID, nil
		}
	}
	return "", errdef.New(errdef.CodeNotFound, "environment %q not found", ref)
}

func printResponse(w io.Writer, resp *httpclient.Response, withHeaders bool) {
	if resp.Error != "" {
		fmt.Fprintln(w, errorStyle.Render(resp.Error))
		return
	}
	status := statusStyle(resp.StatusCode).Render(fmt.Sprintf("%d %s", resp.StatusCode, resp.StatusText))
	meta := dimStyle.Render(fmt.Sprintf("%.0f ms  %s", resp.ElapsedMS, humanSize(resp.Size)))
	fmt.Fprintf(w, "%s  %s\n", status, meta)
	if withHeaders {
		keys := make([]string, 0, len(resp.Headers))
		for k := range resp.Headers {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s: %s\n", keyStyle.Render(k), resp.Headers[k])
		}
	}
	if resp.Body != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, displayBody(resp))
	}
}

// displayBody indents JSON bodies and leaves everything else as received.
func displayBody(resp *httpclient.Response) string {
	if !resp.IsJSON() {
		return resp.Body
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(resp.Body), "", "  "); err != nil {
		return resp.Body
	}
	return buf.String()
}
