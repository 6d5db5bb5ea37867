package main

import (
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/cohesivestack/valgo"
	"github.com/urfave/cli/v2"

	"github.com/joshjon/cryptkit/config"
	"github.com/joshjon/cryptkit/cryptoapi"
	"github.com/joshjon/cryptkit/encrypt"
	"github.com/joshjon/cryptkit/keyfile"
	"github.com/joshjon/cryptkit/keystore"
	"github.com/joshjon/cryptkit/log"
	"github.com/joshjon/cryptkit/server"
	"github.com/joshjon/cryptkit/sqlitedb"
	"github.com/joshjon/cryptkit/valgoutil"
)

const (
	cmdTimeout      = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	publicKeySuffix = ".pub"
)

func newApp(stdout io.Writer, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "cryptkit"
	app.Usage = "generate keys and encrypt or decrypt text with AES and RSA"
	app.Writer = stdout
	app.ErrWriter = stderr

	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "log debug messages to stderr",
			EnvVars: []string{"CRYPTKIT_VERBOSE"},
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:   "algorithms",
			Usage:  "lists the supported algorithms",
			Action: execCmd(algorithms),
		},
		{
			Name:  "keygen",
			Usage: "generates key material for an algorithm",
			Flags: []cli.Flag{
				algorithmFlag(),
				&cli.StringFlag{
					Name:    "out",
					Aliases: []string{"o"},
					Usage:   "[required] output PEM file; key pairs also write the public key to <out>" + publicKeySuffix,
				},
				&cli.StringFlag{
					Name:    "passphrase",
					Usage:   "derive an AES key from this passphrase instead of generating a random one",
					EnvVars: []string{"CRYPTKIT_PASSPHRASE"},
				},
				&cli.StringFlag{
					Name:  "salt",
					Usage: "hex encoded salt for --passphrase, at least 8 bytes",
				},
			},
			Action: execCmd(keygen),
		},
		{
			Name:  "encrypt",
			Usage: "encrypts text and prints the base64 ciphertext",
			Flags: []cli.Flag{
				algorithmFlag(),
				keyFlag(),
				&cli.StringFlag{
					Name:  "correspondent",
					Usage: "public key PEM file to encrypt for, defaults to the public half of --key",
				},
				&cli.StringFlag{
					Name:    "in",
					Aliases: []string{"i"},
					Usage:   "file holding the text to encrypt",
				},
				&cli.StringFlag{
					Name:    "text",
					Aliases: []string{"t"},
					Usage:   "text to encrypt",
				},
			},
			Action: execCmd(encryptText),
		},
		{
			Name:  "decrypt",
			Usage: "decrypts base64 ciphertext and prints the text",
			Flags: []cli.Flag{
				algorithmFlag(),
				keyFlag(),
				&cli.StringFlag{
					Name:    "in",
					Aliases: []string{"i"},
					Usage:   "[required] file holding the base64 ciphertext",
				},
			},
			Action: execCmd(decryptText),
		},
		{
			Name:  "serve",
			Usage: "serves the key store and encryption HTTP API",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "config",
					Aliases: []string{"c"},
					Usage:   "YAML config file, environment variables override it",
					EnvVars: []string{"CRYPTKIT_CONFIG"},
				},
			},
			Action: serve,
		},
	}

	return app
}

func algorithmFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "algorithm",
		Aliases: []string{"a"},
		Usage:   "[required] algorithm id, see the algorithms command",
	}
}

func keyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "key",
		Aliases: []string{"k"},
		Usage:   "[required] secret key or private key PEM file",
	}
}

func execCmd(cmd func(ctx context.Context, logger log.Logger, c *cli.Context) error) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer cancel()
		ctx, tcancel := context.WithTimeout(ctx, cmdTimeout)
		defer tcancel()

		return cmd(ctx, cliLogger(c), c)
	}
}

func cliLogger(c *cli.Context) log.Logger {
	opts := []log.LoggerOption{log.WithDevelopment(), log.WithWriter(c.App.ErrWriter)}
	if c.Bool("verbose") {
		opts = append(opts, log.WithLevel(slog.LevelDebug))
	}
	return log.NewLogger(opts...)
}

func algorithms(_ context.Context, _ log.Logger, c *cli.Context) error {
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTRANSFORM\tKEY SIZE")
	for _, alg := range encrypt.Algorithms() {
		fmt.Fprintf(w, "%s\t%s\t%d\n", alg.ID(), alg.Name(), alg.KeySize())
	}
	return w.Flush()
}

func keygen(_ context.Context, logger log.Logger, c *cli.Context) error {
	out := c.String("out")
	if err := checkFlags(
		valgoutil.AlgorithmValidator(c.String("algorithm"), "algorithm"),
		valgo.String(out, "out").Not().Blank(),
		valgoutil.DirValidator(filepath.Dir(out), "out"),
	); err != nil {
		return err
	}

	alg, err := encrypt.ParseAlgorithm(c.String("algorithm"))
	if err != nil {
		return err
	}

	passphrase := c.String("passphrase")
	switch a := alg.(type) {
	case encrypt.SymmetricAlgorithm:
		var key encrypt.SecretKey
		if passphrase != "" {
			key, err = deriveKey(a, passphrase, c.String("salt"))
		} else {
			key, err = encrypt.GenerateSecretKey(a)
		}
		if err != nil {
			return err
		}
		if err = keyfile.WriteSecretKey(out, key); err != nil {
			return err
		}
		logger.Info("secret key written", "algorithm", a.ID(), "file", out)
	case encrypt.AsymmetricAlgorithm:
		if passphrase != "" {
			return flagError("passphrase", "only AES keys can be derived from a passphrase")
		}
		kp, err := encrypt.GenerateKeyPair(a)
		if err != nil {
			return err
		}
		pubOut := out + publicKeySuffix
		if err = keyfile.WriteKeyPair(out, pubOut, kp); err != nil {
			return err
		}
		logger.Info("key pair written", "algorithm", a.ID(), "private_key_file", out, "public_key_file", pubOut)
	}
	return nil
}

func deriveKey(alg encrypt.SymmetricAlgorithm, passphrase string, saltHex string) (encrypt.SecretKey, error) {
	if saltHex == "" {
		return encrypt.SecretKey{}, flagError("salt", "--salt is required with --passphrase")
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return encrypt.SecretKey{}, flagError("salt", "must be hex encoded")
	}
	return encrypt.DeriveSecretKey(alg, []byte(passphrase), salt)
}

func encryptText(ctx context.Context, logger log.Logger, c *cli.Context) error {
	in, text := c.String("in"), c.String("text")
	validators := []valgo.Validator{
		valgoutil.AlgorithmValidator(c.String("algorithm"), "algorithm"),
		valgoutil.FileValidator(c.String("key"), "key"),
	}
	if c.IsSet("correspondent") {
		validators = append(validators, valgoutil.FileValidator(c.String("correspondent"), "correspondent"))
	}
	switch {
	case in != "" && c.IsSet("text"):
		return flagError("in", "only one of --in and --text may be set")
	case in != "":
		validators = append(validators, valgoutil.FileValidator(in, "in"))
	case !c.IsSet("text"):
		return flagError("text", "one of --in or --text is required")
	}
	if err := checkFlags(validators...); err != nil {
		return err
	}

	if in != "" {
		b, err := os.ReadFile(in)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		text = string(b)
	}

	method, err := loadMethod(c.String("algorithm"), c.String("key"), c.String("correspondent"), logger)
	if err != nil {
		return err
	}
	ciphertext, err := method.EncryptToText(ctx, encrypt.NewText(text))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, ciphertext)
	return err
}

func decryptText(ctx context.Context, logger log.Logger, c *cli.Context) error {
	if err := checkFlags(
		valgoutil.AlgorithmValidator(c.String("algorithm"), "algorithm"),
		valgoutil.FileValidator(c.String("key"), "key"),
		valgoutil.FileValidator(c.String("in"), "in"),
	); err != nil {
		return err
	}

	b, err := os.ReadFile(c.String("in"))
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	method, err := loadMethod(c.String("algorithm"), c.String("key"), "", logger)
	if err != nil {
		return err
	}
	v, err := method.DecryptFromText(ctx, strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	text, ok := v.(*encrypt.Text)
	if !ok {
		name, _ := encrypt.DefaultCodec.TypeName(v)
		return fmt.Errorf("decrypted value is %q, not text", name)
	}
	_, err = fmt.Fprint(c.App.Writer, text.Value)
	return err
}

// loadMethod builds a method for algID from key files. correspondentPath is
// only used by asymmetric algorithms.
func loadMethod(algID string, keyPath string, correspondentPath string, logger log.Logger) (encrypt.Method, error) {
	alg, err := encrypt.ParseAlgorithm(algID)
	if err != nil {
		return nil, err
	}
	opts := []encrypt.Option{encrypt.WithLogger(logger)}

	switch a := alg.(type) {
	case encrypt.SymmetricAlgorithm:
		key, err := keyfile.ReadSecretKey(keyPath)
		if err != nil {
			return nil, err
		}
		m, err := encrypt.NewSymmetricFromKey(a, key, opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	case encrypt.AsymmetricAlgorithm:
		kp, err := keyfile.ReadKeyPair(keyPath)
		if err != nil {
			return nil, err
		}
		var correspondent crypto.PublicKey = kp.Public
		if correspondentPath != "" {
			if correspondent, err = keyfile.ReadPublicKey(correspondentPath); err != nil {
				return nil, err
			}
		}
		m, err := encrypt.NewAsymmetric(a, kp, correspondent, opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported algorithm %s", alg)
}

func serve(c *cli.Context) error {
	var cfg Config
	if err := config.Load(c.String("config"), &cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return runServer(ctx, cfg, log.NewLogger(append(cfg.Log.Options(), log.WithWriter(c.App.ErrWriter))...), nil)
}

// runServer serves until ctx ends. ready, when non-nil, receives the server
// once it is healthy.
func runServer(ctx context.Context, cfg Config, logger log.Logger, ready func(srv *server.Server)) error {
	defaultAlg, err := cfg.defaultAlgorithm()
	if err != nil {
		return err
	}

	var dbOpts []sqlitedb.OpenOption
	if cfg.Keystore.InMemory {
		dbOpts = append(dbOpts, sqlitedb.WithInMemory())
	} else {
		dbOpts = append(dbOpts, sqlitedb.WithDir(cfg.Keystore.Dir))
	}

	logger.Info("opening keystore", "path", sqlitedb.Path(dbOpts...))
	db, err := sqlitedb.Open(ctx, dbOpts...)
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := keystore.Migrate(db)
	if err != nil {
		return err
	}
	logger.Debug("keystore schema ready", "version", version)

	srvOpts := []server.Option{
		server.WithLogger(logger),
		server.WithRequestTimeout(cfg.Server.RequestTimeout),
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		srvOpts = append(srvOpts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	if cfg.Server.TLSCertFile != "" {
		srvOpts = append(srvOpts, server.WithTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile, ""))
	}

	srv, err := server.NewServer(cfg.Server.Port, srvOpts...)
	if err != nil {
		return err
	}
	handler := cryptoapi.NewHandler(keystore.NewSQLiteStore(db), logger,
		cryptoapi.WithDefaultAlgorithm(defaultAlg),
	)
	srv.Register("/v1", handler)

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Start()
	}()
	logger.Info("server started", "address", srv.Address())

	if ready != nil {
		if err = srv.WaitHealthy(50, 20*time.Millisecond); err != nil {
			return err
		}
		ready(srv)
	}

	select {
	case err = <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	if err = srv.Stop(sctx); err != nil {
		return err
	}
	return <-errs
}

func checkFlags(validators ...valgo.Validator) error {
	return valgo.In("flags", valgo.Is(validators...)).Error()
}

func flagError(name string, message string) error {
	return valgo.In("flags", valgo.AddErrorMessage(name, message)).Error()
}

// printError writes err to w, listing each validation failure on its own
// line.
func printError(w io.Writer, err error) {
	var verr *valgo.Error
	if !errors.As(err, &verr) {
		fmt.Fprintf(w, "Error: %s\n", err)
		return
	}
	fmt.Fprintln(w, "Invalid input:")
	for _, d := range valgoutil.GetDetails(verr) {
		fmt.Fprintf(w, "  %s\n", d)
	}
}
