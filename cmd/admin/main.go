// Command admin is the operator TUI: press r to refresh, q to quit;
// lists Accepted and Pending quotes with their bill and endorser
// fields, against quoteservice's admin HTTP surface.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/wildcat-ecash/backoffice/internal/authclient"
)

type lightQuote struct {
	Id           string    `json:"Id"`
	BillId       string    `json:"BillId"`
	Drawee       string    `json:"Drawee"`
	Drawer       string    `json:"Drawer"`
	Payee        string    `json:"Payee"`
	Holder       string    `json:"Holder"`
	Sum          uint64    `json:"Sum"`
	MaturityDate time.Time `json:"MaturityDate"`
}

type listResponse struct {
	Quotes []lightQuote `json:"quotes"`
}

type dashboard struct {
	endpoint string
	tokens   *authclient.TokenCache
	client   *http.Client
}

func (d *dashboard) fetch(status string) ([]lightQuote, error) {
	req, err := http.NewRequest(http.MethodGet, d.endpoint+"/v1/admin/credit/quote?status="+url.QueryEscape(status), nil)
	if err != nil {
		return nil, err
	}
	if err := d.tokens.AuthorizedRequest(req); err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing %s quotes: status %d", status, resp.StatusCode)
	}
	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Quotes, nil
}

const mainMenu = "----- press (r) to refresh ----- (q) to quit"

func (d *dashboard) render() {
	accepted, err := d.fetch("Accepted")
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetching accepted quotes: %v\r\n", err)
		return
	}
	pending, err := d.fetch("Pending")
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetching pending quotes: %v\r\n", err)
		return
	}

	fmt.Print("\033[2J\033[H")
	fmt.Print("wildcat admin dashboard\r\n")
	fmt.Print(mainMenu, "\r\n")

	fmt.Print("\r\n\r\nAccepted quotes\r\n")
	fmt.Printf("%-25s %-25s\r\n", "bill ID", "endorser ID")
	for _, q := range accepted {
		fmt.Printf("%-25s %-25s\r\n", q.BillId, q.Holder)
	}

	fmt.Print("\r\n\r\nPending quotes\r\n")
	fmt.Printf("%-8s %-25s %-25s\r\n", "index", "bill ID", "endorser ID")
	for i, q := range pending {
		fmt.Printf("%-8d %-25s %-25s\r\n", i, q.BillId, q.Holder)
	}
}

func run(c *cli.Context) error {
	d := &dashboard{
		endpoint: c.String("endpoint"),
		client:   &http.Client{Timeout: 10 * time.Second},
		tokens: authclient.NewTokenCache(
			c.String("token-url"),
			c.String("client-id"),
			c.String("client-secret"),
			c.String("username"),
			c.String("password"),
		),
	}

	d.render()

	fd := int(os.Stdin.Fd())
	prevState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("entering raw terminal mode: %w", err)
	}
	defer term.Restore(fd, prevState)

	reader := bufio.NewReader(os.Stdin)
	for {
		r, _, err := reader.ReadRune()
		if err != nil {
			return err
		}
		switch r {
		case 'r':
			d.render()
		case 'q':
			return nil
		}
	}
}

func main() {
	app := &cli.App{
		Name:  "wildcat-admin",
		Usage: "operator dashboard for the wildcat back-office",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "endpoint", Value: "http://localhost:8083", EnvVars: []string{"QUOTESERVICE_URL"}},
			&cli.StringFlag{Name: "token-url", Value: "http://localhost:8080/oauth/token", EnvVars: []string{"OAUTH_TOKEN_URL"}},
			&cli.StringFlag{Name: "client-id", EnvVars: []string{"OAUTH_CLIENT_ID"}},
			&cli.StringFlag{Name: "client-secret", EnvVars: []string{"OAUTH_CLIENT_SECRET"}},
			&cli.StringFlag{Name: "username", EnvVars: []string{"OAUTH_USERNAME"}},
			&cli.StringFlag{Name: "password", EnvVars: []string{"OAUTH_PASSWORD"}},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
