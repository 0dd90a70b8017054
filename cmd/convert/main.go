package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"geofix/internal/convert"
	"geofix/internal/crs"
	"geofix/internal/logger"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Input       string        `short:"i" long:"in"      description:"Input file path (.geojson, .json, .fgb)"`
	Output      string        `short:"o" long:"out"     description:"Output file path, format derived from extension"`
	EPSG        int           `short:"e" long:"epsg"    description:"Assign this EPSG code to the output"`
	Style       string        `short:"s" long:"style"   description:"Encoding of the crs member in GeoJSON output" choice:"epsg" choice:"name" default:"epsg"`
	Indent      bool          `long:"indent"  description:"Pretty-print GeoJSON output"`
	Minify      bool          `short:"m" long:"minify"  description:"Strip whitespace from GeoJSON output"`
	ViaOGR      bool          `long:"via-ogr" description:"Shell out to ogr2ogr instead of converting natively"`
	Timeout     time.Duration `long:"timeout" description:"ogr2ogr execution timeout" default:"60s"`
	ListDrivers bool          `long:"list-drivers" description:"List available conversion drivers and exit"`
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

	if opts.ListDrivers {
		for _, d := range convert.Drivers() {
			kind := "native"
			if !d.Native {
				kind = "external"
			}
			fmt.Printf("%-12s %-8s %s\n", d.Name, kind, strings.Join(d.Extensions, " "))
		}
		return
	}

	if opts.Input == "" || opts.Output == "" {
		fmt.Fprintln(os.Stderr, "Error: --in and --out are required")
		os.Exit(1)
	}

	var target *crs.Ref
	if opts.EPSG > 0 {
		ref, known := crs.Lookup(opts.EPSG)
		if !known {
			log.Warn().Int("epsg", opts.EPSG).Msg("EPSG code not in registry, assigning code only")
		}
		target = ref
	}

	if opts.ViaOGR {
		runOGR(&opts)
		return
	}

	style := crs.StyleEPSG
	if opts.Style == "name" {
		style = crs.StyleName
	}

	err := convert.Convert(opts.Input, opts.Output, &convert.Options{
		TargetCRS: target,
		Style:     style,
		Indent:    opts.Indent,
		Minify:    opts.Minify,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Conversion failed")
	}

	log.Info().
		Str("in", opts.Input).
		Str("out", opts.Output).
		Msg("Conversion finished")
}

func runOGR(opts *Options) {
	format, err := convert.DetectFormat(opts.Output)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot derive output format")
	}

	req := &convert.OGRRequest{
		Src:       opts.Input,
		Dst:       opts.Output,
		DstFormat: string(format),
	}
	if opts.EPSG > 0 {
		req.AssignCRS = fmt.Sprintf("EPSG:%d", opts.EPSG)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	if err := convert.RunOGR(ctx, req); err != nil {
		log.Fatal().Err(err).Msg("ogr2ogr failed")
	}

	log.Info().
		Str("in", opts.Input).
		Str("out", opts.Output).
		Msg("ogr2ogr conversion finished")
}
