// Command soa generates statements of account from an accounting ledger.
package main

import (
	"context"
	"flag"
	"os"
	"path"
	"strings"

	"github.com/etnz/soa/cmd"
	"github.com/etnz/soa/docs"
	"github.com/etnz/soa/renderer"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	name := path.Base(os.Args[0])
	completion(name).Complete(name)

	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()

	// Unknown subcommands are looked up as soa-<subcommand> extensions.
	if sub := flag.Arg(0); sub != "" && !registered(sub) {
		if found, code := cmd.RunExtension(sub, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}
	os.Exit(int(commander.Execute(context.Background())))
}

func registered(name string) bool {
	switch name {
	case "help", "flags", "commands":
		return true
	}
	for _, e := range cmd.Commands {
		if e.Command.Name() == name {
			return true
		}
	}
	return false
}

// completion describes the command line for shell completion.
func completion(name string) *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: flags(flag.CommandLine),
	}
	for _, e := range cmd.Commands {
		f := flag.NewFlagSet(e.Command.Name(), flag.ContinueOnError)
		e.Command.SetFlags(f)
		sub := &complete.Command{Flags: flags(f)}
		switch e.Command.Name() {
		case "topic":
			topics, _ := docs.GetAllTopics()
			sub.Args = predict.Set(topics)
		case "profile", "serve":
		default:
			sub.Args = predict.Files("*")
		}
		root.Sub[e.Command.Name()] = sub
	}
	return root
}

// flags predicts the values of the flags of f from their names.
func flags(f *flag.FlagSet) map[string]complete.Predictor {
	predictors := make(map[string]complete.Predictor)
	f.VisitAll(func(fl *flag.Flag) {
		if b, ok := fl.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			predictors[fl.Name] = predict.Nothing
			return
		}
		switch {
		case fl.Name == "format":
			predictors[fl.Name] = predict.Set(renderer.Formats)
		case fl.Name == "o", fl.Name == "w", fl.Name == "mapping", fl.Name == "profile", strings.HasSuffix(fl.Name, "-file"):
			predictors[fl.Name] = predict.Files("*")
		default:
			predictors[fl.Name] = predict.Something
		}
	})
	return predictors
}
