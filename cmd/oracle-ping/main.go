// Command oracle-ping dials one or more Oracle connect descriptors,
// completes a full logon handshake, logs off, and reports the outcome
// as a JSON summary on stdout — a connectivity smoke test that parses
// flags, runs, and emits a JSON summary, same as a zgrab2 module's CLI
// entrypoint.
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	oracle "github.com/lovetodream/oracle-nio-sub000"
	log "github.com/sirupsen/logrus"
	flags "github.com/zmap/zflags"
)

// options mirrors zgrab2's flags-struct-per-module convention, collapsed
// to the single descriptor this tool pings.
type options struct {
	Host        string `long:"host" description:"Oracle listener host" required:"true"`
	Port        int    `long:"port" description:"Oracle listener port" default:"1521"`
	ServiceName string `long:"service-name" description:"CONNECT_DATA SERVICE_NAME"`
	SID         string `long:"sid" description:"CONNECT_DATA SID"`
	Username    string `long:"username" description:"logon username"`
	Password    string `long:"password" description:"logon password"`
	UseTLS      bool   `long:"tls" description:"use tcps and a wallet"`
	WalletDir   string `long:"wallet-dir" description:"wallet directory for tcps"`
	TimeoutSecs int    `long:"timeout" default:"10" description:"overall probe timeout in seconds"`
}

// summary is the JSON document written to stdout, mirroring the
// teacher's own Summary{StatusesPerModule,...} shape.
type summary struct {
	Results  []oracle.PingResult `json:"results"`
	Duration string              `json:"duration"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.Fatal(err.Error())
	}

	descriptor := &oracle.Description{
		Addresses:   []oracle.Address{{Protocol: protoFor(opts.UseTLS), Host: opts.Host, Port: opts.Port}},
		ServiceName: opts.ServiceName,
		SID:         opts.SID,
	}

	var wallet *oracle.WalletConfig
	if opts.UseTLS {
		wallet = &oracle.WalletConfig{WalletDirectory: opts.WalletDir, ServerName: opts.Host}
	}

	credential := oracle.Credential(&oracle.PasswordCredential{Username: opts.Username, Password: opts.Password})

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(opts.TimeoutSecs)*time.Second)
	defer cancel()

	start := time.Now()
	m := oracle.NewMonitor()
	m.Ping(ctx, opts.Host, descriptor, wallet, credential)
	m.Wait()

	var results []oracle.PingResult
	for r := range m.Results() {
		results = append(results, r)
	}

	s := summary{Results: results, Duration: time.Since(start).String()}
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(&s); err != nil {
		log.Fatalf("unable to write summary: %s", err.Error())
	}
}

func protoFor(useTLS bool) string {
	if useTLS {
		return "tcps"
	}
	return "tcp"
}
