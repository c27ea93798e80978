// Command coeffctl reads and updates delivery pricing coefficients on the external service.
//
//	coeffctl get
//	coeffctl set -distance 0.6 -weight 2.5
//	coeffctl quote -distance 25 -weight 3 [-local]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/noah-isme/jwfoods/internal/pricing"
	"github.com/noah-isme/jwfoods/internal/remote"
	"github.com/noah-isme/jwfoods/internal/resilience"
)

const usage = `usage: coeffctl [-base URL] [-timeout D] <get|set|quote> [flags]`

func main() {
	_ = godotenv.Load()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	if err := run(context.Background(), os.Args[1:], os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, logger zerolog.Logger) error {
	global := flag.NewFlagSet("coeffctl", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	base := global.String("base", os.Getenv("REMOTE_API_BASE_URL"), "external service base URL")
	timeout := global.Duration("timeout", 5*time.Second, "request timeout")
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}
	rest := global.Args()
	if len(rest) == 0 {
		return errors.New(usage)
	}
	if strings.TrimSpace(*base) == "" {
		return errors.New("coeffctl: -base or REMOTE_API_BASE_URL is required")
	}

	client := remote.New(*base, resilience.HTTPClient{
		Client:      remote.NewHTTPClient(*timeout),
		Target:      remote.TargetPricing,
		MaxAttempts: 2,
		Timeout:     *timeout,
	})

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "get":
		c, err := client.GetCoefficients(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, c)
	case "set":
		fs := flag.NewFlagSet("set", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		d := fs.Float64("distance", 0, "distance coefficient")
		w := fs.Float64("weight", 0, "weight coefficient")
		if err := fs.Parse(cmdArgs); err != nil {
			return err
		}
		quoter := pricing.NewQuoter(pricing.NewCoefficientBook(client, pricing.DefaultCoefficients(), logger),
			pricing.WithWriter(client), pricing.WithLogger(logger))
		c := pricing.Coefficients{DistanceCoefficient: *d, WeightCoefficient: *w}
		msg, err := quoter.UpdateCoefficients(ctx, c)
		if err != nil {
			return err
		}
		return printJSON(out, map[string]any{"message": msg, "coefficients": c})
	case "quote":
		fs := flag.NewFlagSet("quote", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		d := fs.Float64("distance", -1, "distance in km")
		w := fs.Float64("weight", 0, "weight in kg")
		local := fs.Bool("local", false, "price with the local formula only")
		if err := fs.Parse(cmdArgs); err != nil {
			return err
		}
		opts := []pricing.QuoterOption{pricing.WithLogger(logger)}
		if !*local {
			opts = append(opts, pricing.WithPrimary(client))
		}
		quoter := pricing.NewQuoter(pricing.NewCoefficientBook(client, pricing.DefaultCoefficients(), logger), opts...)
		q, err := quoter.QuoteDelivery(ctx, pricing.NewTrip(*d, *w))
		if err != nil {
			return err
		}
		return printJSON(out, map[string]any{"quote": q, "display": pricing.FormatMoney(q.Price)})
	default:
		return fmt.Errorf("coeffctl: unknown command %q\n%s", cmd, usage)
	}
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
