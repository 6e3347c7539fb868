package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/oakmarket/expresspay/internal/auth"
)

const defaultAddr = "http://localhost:8080"

func main() {
	exitFn(run(os.Args, os.Stdout, os.Stderr))
}

var exitFn = os.Exit

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	switch args[1] {
	case "txn":
		return handleTxn(args[2:], stdout, stderr)
	case "refund":
		return handleRefund(args[2:], stdout, stderr)
	case "capture":
		return handleOp("capture", "/v1/captures", args[2:], stdout, stderr)
	case "void":
		return handleOp("void", "/v1/voids", args[2:], stdout, stderr)
	case "mint-token":
		return handleMintToken(args[2:], stdout, stderr)
	default:
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: expresspay <command> [flags]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  txn         look up ledger records by token or correlation id")
	fmt.Fprintln(w, "  refund      refund a settled transaction (full or partial)")
	fmt.Fprintln(w, "  capture     capture an authorization")
	fmt.Fprintln(w, "  void        void an authorization")
	fmt.Fprintln(w, "  mint-token  mint a service token for the support API")
}

func handleTxn(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("txn", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", envOrDefault("EXPRESSPAY_ADDR", defaultAddr), "gateway API address")
	token := fs.String("token", "", "checkout session token")
	correlation := fs.String("correlation", "", "PayPal correlation id")
	bearer := fs.String("bearer", envOrDefault("EXPRESSPAY_TOKEN", os.Getenv("EXPRESSPAY_DEV_TOKEN")), "bearer token")
	jsonOut := fs.Bool("json", false, "print raw JSON response")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var target string
	switch {
	case *token != "" && *correlation == "":
		target = *addr + "/v1/transactions?token=" + *token
	case *correlation != "" && *token == "":
		target = *addr + "/v1/transactions/correlation/" + *correlation
	default:
		fmt.Fprintln(stderr, "txn requires exactly one of -token or -correlation")
		fs.Usage()
		return 2
	}

	respBody, status, err := httpGet(http.DefaultClient, target, *bearer)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	if status != http.StatusOK {
		fmt.Fprintf(stderr, "lookup failed: %s\n", strings.TrimSpace(string(respBody)))
		return 1
	}

	if *jsonOut {
		_, _ = stdout.Write(respBody)
		return 0
	}

	var payload struct {
		Transactions []struct {
			Operation     string `json:"operation"`
			Ack           string `json:"ack"`
			Amount        string `json:"amount"`
			Currency      string `json:"currency"`
			Token         string `json:"token"`
			CorrelationID string `json:"correlation_id"`
			ErrorCode     string `json:"error_code"`
			ErrorMessage  string `json:"error_message"`
			CreatedAt     string `json:"created_at"`
		} `json:"transactions"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		fmt.Fprintln(stderr, "invalid response:", err)
		return 1
	}

	for _, txn := range payload.Transactions {
		line := fmt.Sprintf("%s op=%s ack=%s", txn.CreatedAt, txn.Operation, txn.Ack)
		if txn.Amount != "" {
			line += fmt.Sprintf(" amount=%s %s", txn.Amount, txn.Currency)
		}
		if txn.Token != "" {
			line += " token=" + txn.Token
		}
		if txn.CorrelationID != "" {
			line += " correlation=" + txn.CorrelationID
		}
		if txn.ErrorCode != "" {
			line += fmt.Sprintf(" error=%s %q", txn.ErrorCode, txn.ErrorMessage)
		}
		fmt.Fprintln(stdout, line)
	}
	return 0
}

func handleRefund(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("refund", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", envOrDefault("EXPRESSPAY_ADDR", defaultAddr), "gateway API address")
	token := fs.String("token", "", "checkout session token")
	amount := fs.String("amount", "", "refund amount (omit for a full refund)")
	currency := fs.String("currency", "", "refund currency (with -amount)")
	bearer := fs.String("bearer", envOrDefault("EXPRESSPAY_TOKEN", os.Getenv("EXPRESSPAY_DEV_TOKEN")), "bearer token")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *token == "" {
		fmt.Fprintln(stderr, "refund requires -token")
		fs.Usage()
		return 2
	}

	payload := map[string]string{"token": *token}
	if *amount != "" {
		payload["amount"] = *amount
		payload["currency"] = *currency
	}
	return postOp("refund", *addr+"/v1/refunds", payload, *bearer, stdout, stderr)
}

func handleOp(name, path string, args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", envOrDefault("EXPRESSPAY_ADDR", defaultAddr), "gateway API address")
	token := fs.String("token", "", "checkout session token")
	note := fs.String("note", "", "note forwarded to PayPal")
	bearer := fs.String("bearer", envOrDefault("EXPRESSPAY_TOKEN", os.Getenv("EXPRESSPAY_DEV_TOKEN")), "bearer token")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *token == "" {
		fmt.Fprintf(stderr, "%s requires -token\n", name)
		fs.Usage()
		return 2
	}

	payload := map[string]string{"token": *token}
	if *note != "" {
		payload["note"] = *note
	}
	return postOp(name, *addr+path, payload, *bearer, stdout, stderr)
}

func postOp(name, target string, payload map[string]string, bearer string, stdout io.Writer, stderr io.Writer) int {
	body, _ := json.Marshal(payload)
	respBody, status, err := httpPost(http.DefaultClient, target, bearer, body)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	if status != http.StatusOK {
		fmt.Fprintf(stderr, "%s failed: %s\n", name, strings.TrimSpace(string(respBody)))
		return 1
	}

	var view struct {
		Operation     string `json:"operation"`
		Ack           string `json:"ack"`
		CorrelationID string `json:"correlation_id"`
	}
	if err := json.Unmarshal(respBody, &view); err != nil {
		fmt.Fprintln(stderr, "invalid response:", err)
		return 1
	}
	fmt.Fprintf(stdout, "op=%s ack=%s correlation=%s\n", view.Operation, view.Ack, view.CorrelationID)
	return 0
}

func handleMintToken(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("mint-token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	secret := fs.String("secret", os.Getenv("EXPRESSPAY_JWT_SECRET"), "shared JWT secret")
	subject := fs.String("subject", "ops", "token subject")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *secret == "" {
		fmt.Fprintln(stderr, "mint-token requires -secret or EXPRESSPAY_JWT_SECRET")
		return 2
	}

	token, err := auth.NewJWTAuthenticator(*secret).Mint(*subject, *ttl)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}

func httpPost(client *http.Client, target, bearer string, body []byte) ([]byte, int, error) {
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return doRequest(client, req)
}

func httpGet(client *http.Client, target, bearer string) ([]byte, int, error) {
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return doRequest(client, req)
}

func doRequest(client *http.Client, req *http.Request) ([]byte, int, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
