package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/tairon-ai/phala-worker-registry/api"
	"github.com/tairon-ai/phala-worker-registry/api/clients"
	"github.com/tairon-ai/phala-worker-registry/interfaces"
	"github.com/urfave/cli/v2"
)

var flagServerAddr *cli.StringFlag = &cli.StringFlag{
	Name:  "registry-server-addr",
	Value: "http://127.0.0.1:8080",
	Usage: "Worker registry server address to request",
}
var flagLimit *cli.IntFlag = &cli.IntFlag{
	Name:  "limit",
	Value: 10,
	Usage: "Maximum number of workers to list",
}
var flagOnline *cli.BoolFlag = &cli.BoolFlag{
	Name:  "online",
	Usage: "Only list workers in an online session state",
}
var flagCategory *cli.StringFlag = &cli.StringFlag{
	Name:  "category",
	Usage: "Only list workers of this capability category: dcap, epid, gpu, high-memory",
}
var flagQuoteFile *cli.StringFlag = &cli.StringFlag{
	Name:  "quote-file",
	Usage: "File with a raw attestation quote to submit alongside the verification request",
}

func main() {
	app := &cli.App{
		Name:  "worker registry client",
		Usage: "Query the worker discovery and attestation API",
		Flags: []cli.Flag{
			flagServerAddr,
		},
		Commands: []*cli.Command{
			&cli.Command{
				Name:        "list",
				Usage:       "List classified workers",
				Description: "Lists up to --limit workers, optionally filtered by --online and --category",
				Flags: []cli.Flag{
					flagLimit,
					flagOnline,
					flagCategory,
				},
				Action: func(cCtx *cli.Context) error {
					c := newClient(cCtx)
					return c.List(cCtx.Int(flagLimit.Name), cCtx.Bool(flagOnline.Name), cCtx.String(flagCategory.Name))
				},
			},
			&cli.Command{
				Name:        "get",
				Usage:       "Fetch a single worker record",
				Description: "Fetches the enriched record for one worker pubkey",
				ArgsUsage:   "<worker-pubkey>",
				Action: func(cCtx *cli.Context) error {
					c := newClient(cCtx)
					return c.Get(cCtx.Args().First())
				},
			},
			&cli.Command{
				Name:        "verify",
				Usage:       "Verify a worker's attestation",
				Description: "Resolves the attestation for one worker pubkey, optionally submitting a raw quote",
				ArgsUsage:   "<worker-pubkey>",
				Flags: []cli.Flag{
					flagQuoteFile,
				},
				Action: func(cCtx *cli.Context) error {
					c := newClient(cCtx)
					return c.Verify(cCtx.Args().First(), cCtx.String(flagQuoteFile.Name))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type Client struct {
	Provider api.WorkerProvider
}

func newClient(cCtx *cli.Context) *Client {
	return &Client{
		Provider: &clients.WorkerClient{
			ServerAddr: cCtx.String(flagServerAddr.Name),
		},
	}
}

func (c *Client) List(limit int, online bool, category string) error {
	var categoryFilter *interfaces.CapabilityCategory
	if category != "" {
		parsed, err := interfaces.ParseCapabilityCategory(category)
		if err != nil {
			return fmt.Errorf("could not parse category: %w", err)
		}
		categoryFilter = &parsed
	}

	resp, err := c.Provider.ListWorkers(limit, online, categoryFilter)
	if err != nil {
		return fmt.Errorf("worker listing failed: %w", err)
	}
	encodedResp, _ := json.Marshal(resp)
	fmt.Println(string(encodedResp))
	return nil
}

func (c *Client) Get(rawPubkey string) error {
	pubkey, err := interfaces.NewWorkerPubkeyFromHex(rawPubkey)
	if err != nil {
		return fmt.Errorf("could not parse worker pubkey: %w", err)
	}

	rec, err := c.Provider.GetWorker(pubkey)
	if err != nil {
		return fmt.Errorf("worker lookup failed: %w", err)
	}
	encodedRec, _ := json.Marshal(rec)
	fmt.Println(string(encodedRec))
	return nil
}

func (c *Client) Verify(rawPubkey, quoteFile string) error {
	pubkey, err := interfaces.NewWorkerPubkeyFromHex(rawPubkey)
	if err != nil {
		return fmt.Errorf("could not parse worker pubkey: %w", err)
	}

	var reportData []byte
	if quoteFile != "" {
		reportData, err = os.ReadFile(quoteFile)
		if err != nil {
			return fmt.Errorf("could not read quote file: %w", err)
		}
	}

	res, err := c.Provider.VerifyAttestation(pubkey, reportData)
	if err != nil {
		return fmt.Errorf("attestation verification failed: %w", err)
	}
	encodedRes, _ := json.Marshal(res)
	fmt.Println(string(encodedRes))
	return nil
}
