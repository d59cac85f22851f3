package base

import (
	"flag"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/pagewright/internal/config"
)

// Command carries what every subcommand needs.
type Command struct {
	Log hclog.Logger
	UI  cli.Ui
}

// LoadConfig loads the configuration file at path and applies its log level
// to c.Log.
func (c *Command) LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.Log.SetLevel(cfg.Level())
	return cfg, nil
}

// FlagSet wraps a flag.FlagSet to render its flags in command help.
type FlagSet struct {
	*flag.FlagSet
}

func NewFlagSet(f *flag.FlagSet) *FlagSet {
	return &FlagSet{FlagSet: f}
}

// Help returns the flag documentation, one indented entry per flag.
func (f *FlagSet) Help() string {
	var b strings.Builder
	b.WriteString("\n\nOptions:\n")
	f.VisitAll(func(fl *flag.Flag) {
		name, usage := flag.UnquoteUsage(fl)
		if name != "" {
			fmt.Fprintf(&b, "\n  -%s=<%s>\n", fl.Name, name)
		} else {
			fmt.Fprintf(&b, "\n  -%s\n", fl.Name)
		}
		if fl.DefValue != "" && fl.DefValue != "false" {
			usage = fmt.Sprintf("%s Default: %s.", usage, fl.DefValue)
		}
		fmt.Fprintf(&b, "    %s\n", usage)
	})
	return b.String()
}
