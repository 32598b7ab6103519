package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/ambiyansyah-risyal/familysearch"
	"github.com/ambiyansyah-risyal/familysearch/internal/config"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// flagKeys maps global flags to config keys. Only flags set on the command
// line override the file and environment.
var flagKeys = map[string]string{
	"environment": "environment",
	"base-url":    "base_url",
	"token":       "access_token",
	"key":         "developer_key",
	"log-level":   "log_level",
	"debug":       "debug",
}

// App builds the fsclient command tree.
func App() *cli.App {
	return &cli.App{
		Name:    "fsclient",
		Usage:   "Call FamilySearch API operations by discovery link name",
		Version: familysearch.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
			&cli.StringFlag{Name: "environment", Aliases: []string{"e"}, Usage: "production, staging or sandbox"},
			&cli.StringFlag{Name: "base-url", Usage: "override the environment's base URL"},
			&cli.StringFlag{Name: "token", Usage: "bearer access token"},
			&cli.StringFlag{Name: "key", Usage: "developer key"},
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn, error or off"},
			&cli.BoolFlag{Name: "debug", Usage: "log every exchange"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: outputText, Usage: "text or json"},
		},
		Commands: []*cli.Command{
			discoverCommand(),
			loginCommand(),
			invokeCommand(http.MethodGet),
			invokeCommand(http.MethodHead),
			versionCommand(),
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	overrides := make(map[string]any)
	for flag, key := range flagKeys {
		if !c.IsSet(flag) {
			continue
		}
		if flag == "debug" {
			overrides[key] = c.Bool(flag)
			continue
		}
		overrides[key] = c.String(flag)
	}

	return config.NewLoader(
		config.WithFile(c.String("config")),
		config.WithOverrides(overrides),
	).Load()
}

func newClient(c *cli.Context) (*familysearch.Client, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	client := familysearch.New(cfg.Options(cfg.Logger(c.App.ErrWriter))...)
	if !client.IsValid() {
		return nil, nil, client.ValidationError()
	}
	return client, cfg, nil
}

func discoverCommand() *cli.Command {
	return &cli.Command{
		Name:  "discover",
		Usage: "List the links of the discovery document",
		Action: func(c *cli.Context) error {
			client, _, err := newClient(c)
			if err != nil {
				return err
			}

			doc, err := client.Discover(c.Context)
			if err != nil {
				return err
			}

			if c.String("output") == outputJSON {
				mapping, _ := doc.Body().Mapping()
				return writeJSON(c.App.Writer, mapping)
			}

			for _, name := range doc.Names() {
				tmpl, err := doc.Lookup(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n",
					name, strings.ToUpper(strings.Join(tmpl.AllowedMethods, ",")), tmpl.Raw)
			}
			return nil
		},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Authenticate with username and password and print the session token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}},
		},
		Action: func(c *cli.Context) error {
			client, cfg, err := newClient(c)
			if err != nil {
				return err
			}

			username := firstNonEmpty(c.String("username"), cfg.Username)
			password := firstNonEmpty(c.String("password"), cfg.Password)
			if username == "" || password == "" {
				return fmt.Errorf("login requires --username and --password")
			}

			token, err := client.Authenticate(c.Context, username, password)
			if err != nil {
				return err
			}

			if c.String("output") == outputJSON {
				return writeJSON(c.App.Writer, map[string]string{"token": token})
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}

func invokeCommand(method string) *cli.Command {
	name := strings.ToLower(method)
	return &cli.Command{
		Name:      name,
		Usage:     fmt.Sprintf("Invoke a discovery link with %s", method),
		ArgsUsage: "LINK [name=value ...]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("%s requires a link name", name)
			}

			values, err := parseValues(c.Args().Tail())
			if err != nil {
				return err
			}

			client, _, err := newClient(c)
			if err != nil {
				return err
			}

			resp, err := client.Operation(c.Args().First()).Invoke(c.Context, method, values, "", nil)
			if err != nil {
				return err
			}

			if method == http.MethodHead {
				return writeHeaders(c.App.Writer, resp)
			}
			return writeBody(c.App.Writer, resp.Body)
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, familysearch.GetVersion())
			return nil
		},
	}
}

func parseValues(args []string) (familysearch.Values, error) {
	values := make(familysearch.Values, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("argument %q is not name=value", arg)
		}
		values[name] = value
	}
	return values, nil
}

func writeBody(w io.Writer, body familysearch.Body) error {
	switch body.Kind() {
	case familysearch.KindEmpty:
		return nil
	case familysearch.KindRaw:
		_, err := w.Write(body.Bytes())
		return err
	case familysearch.KindFeed:
		feed, _ := body.Feed()
		return writeJSON(w, feed)
	case familysearch.KindMapping:
		m, _ := body.Mapping()
		return writeJSON(w, m)
	case familysearch.KindSequence:
		s, _ := body.Sequence()
		return writeJSON(w, s)
	default:
		v, _ := body.Scalar()
		return writeJSON(w, v)
	}
}

func writeHeaders(w io.Writer, resp *familysearch.Response) error {
	fmt.Fprintf(w, "%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range resp.Header[k] {
			if _, err := fmt.Fprintf(w, "%s: %s\n", k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
