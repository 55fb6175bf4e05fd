package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/barrelfile/couchrepair"
	"github.com/barrelfile/couchrepair/dbconfig"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "couchrepair: logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	switch cmd {
	case "repair":
		runRepair(log, args)
	case "lost-and-found":
		runLostAndFound(log, args)
	case "find-nodes":
		runFindNodes(log, args)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: couchrepair <repair|lost-and-found|find-nodes> [-config path] db_name")
}

func loadConfig(fs *flag.FlagSet, args []string) (*dbconfig.Config, []string) {
	configPath := fs.String("config", "", "path to an ini config file")
	fs.Parse(args)
	cfg, err := dbconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "couchrepair: config load failed: %v\n", err)
		os.Exit(1)
	}
	return cfg, fs.Args()
}

func runRepair(log *zap.Logger, args []string) {
	fs := flag.NewFlagSet("repair", flag.ExitOnError)
	cfg, rest := loadConfig(fs, args)
	if len(rest) != 1 {
		usage()
		os.Exit(1)
	}

	report, err := couchrepair.RepairByName(log, cfg, rest[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "couchrepair: repair failed: %v\n", err)
		os.Exit(1)
	}

	switch report.Status {
	case couchrepair.StatusNoHeader:
		fmt.Println("no_header")
	case couchrepair.StatusOK:
		fmt.Println("ok")
	case couchrepair.StatusRepaired:
		fmt.Printf("repaired: by_id=%d by_seq=%d update_seq=%d\n",
			report.ByIDOffset, report.BySeqOffset, report.UpdateSeq)
	}
}

func runLostAndFound(log *zap.Logger, args []string) {
	fs := flag.NewFlagSet("lost-and-found", flag.ExitOnError)
	cfg, rest := loadConfig(fs, args)
	if len(rest) != 1 {
		usage()
		os.Exit(1)
	}

	if err := couchrepair.MakeLostAndFound(log, cfg, rest[0]); err != nil {
		fmt.Fprintf(os.Stderr, "couchrepair: lost-and-found failed: %v\n", err)
		os.Exit(1)
	}
}

func runFindNodes(log *zap.Logger, args []string) {
	fs := flag.NewFlagSet("find-nodes", flag.ExitOnError)
	cfg, rest := loadConfig(fs, args)
	if len(rest) != 1 {
		usage()
		os.Exit(1)
	}

	offsets, err := couchrepair.FindNodesQuicklyByName(cfg, rest[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "couchrepair: find-nodes failed: %v\n", err)
		os.Exit(1)
	}

	for _, offset := range offsets {
		fmt.Println(offset)
	}
}
