package main

import (
	"fmt"
	"os"

	"geofix/internal/crs"
	"geofix/internal/geodoc"
	"geofix/internal/logger"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Input   string `short:"i" long:"in"    required:"true" description:"Input GeoJSON file path"`
	Output  string `short:"o" long:"out"   description:"Output file path. Rewrites the input in place if empty"`
	EPSG    int    `short:"e" long:"epsg"  description:"EPSG code to assign, e.g. 4283"`
	Name    string `short:"n" long:"name"  description:"CRS name to assign, e.g. EPSG:4283 or urn:ogc:def:crs:EPSG::4283"`
	Style   string `short:"s" long:"style" description:"Encoding of the crs member" choice:"epsg" choice:"name" default:"epsg"`
	Indent  bool   `long:"indent"  description:"Pretty-print the output"`
	Verify  bool   `long:"verify"  description:"Round-trip the result and confirm the crs member survives"`
	Prj     bool   `long:"prj"     description:"Write a WKT .prj sidecar next to the output"`
	Inspect bool   `long:"inspect" description:"Only report the document CRS, change nothing"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	doc, err := geodoc.Read(opts.Input)
	if err != nil {
		log.Fatal().Err(err).Str("path", opts.Input).Msg("Failed to read document")
	}

	if doc.CRS != nil {
		log.Info().
			Str("crs", doc.CRS.String()).
			Int("features", len(doc.FC.Features)).
			Msg("Document declares a CRS")
	} else {
		log.Warn().
			Int("features", len(doc.FC.Features)).
			Msg("Document has no crs member")
	}

	if opts.Inspect {
		if doc.CRS == nil {
			fmt.Println("crs: none")
			os.Exit(2)
		}
		fmt.Printf("crs: %s\n", doc.CRS)
		return
	}

	ref, err := resolveRef(&opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve requested CRS")
	}
	if ref == nil {
		// Nothing requested: keep whatever the document has.
		if doc.CRS == nil {
			log.Fatal().Msg("Document has no CRS and none was given, use --epsg or --name")
		}
		ref = doc.CRS
	}

	doc.CRS = ref

	style := crs.StyleEPSG
	if opts.Style == "name" {
		style = crs.StyleName
	}
	wopts := &geodoc.WriteOptions{Style: style, Indent: opts.Indent}

	if opts.Verify {
		if err := geodoc.VerifyRoundTrip(doc, wopts); err != nil {
			log.Fatal().Err(err).Msg("Round-trip verification failed")
		}
		log.Info().Str("crs", ref.String()).Msg("Round-trip verified, crs member survives")
	}

	out := opts.Output
	if out == "" {
		out = opts.Input
	}

	if err := geodoc.Write(out, doc, wopts); err != nil {
		log.Fatal().Err(err).Str("path", out).Msg("Failed to write document")
	}
	log.Info().
		Str("path", out).
		Str("crs", ref.String()).
		Msg("Document written")

	if opts.Prj {
		prjPath, err := geodoc.WritePrj(out, ref)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to write .prj sidecar")
		}
		log.Info().Str("path", prjPath).Msg("Sidecar written")
	}
}

// resolveRef maps the --epsg/--name flags to a CRS reference. Returns
// nil when neither was given.
func resolveRef(opts *Options) (*crs.Ref, error) {
	if opts.EPSG > 0 && opts.Name != "" {
		return nil, fmt.Errorf("use either --epsg or --name, not both")
	}

	if opts.EPSG > 0 {
		ref, known := crs.Lookup(opts.EPSG)
		if !known {
			log.Warn().Int("epsg", opts.EPSG).Msg("EPSG code not in registry, assigning code only")
		}
		return ref, nil
	}

	if opts.Name != "" {
		return crs.ParseName(opts.Name)
	}

	return nil, nil
}
