// Package cli provides the building blocks of the wsstream command line:
// named endpoint contexts, output formatting, request files and a live
// transcript view.
//
// Contexts are stored in ~/.wsstream/config.yaml, kubectl style:
//
//	cfg, err := cli.LoadConfig("")
//	ctx, err := cfg.ResolveContext(name)
//
// Results are printed with Output for whole documents and with a Stream for
// one record at a time:
//
//	s := cli.NewStream(os.Stdout, cli.FormatJSONL)
//	for r := range results {
//	    s.Write(r)
//	}
package cli
