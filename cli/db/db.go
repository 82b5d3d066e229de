package db

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/ethmpt/cli/options"
	"github.com/nspcc-dev/ethmpt/pkg/config"
	"github.com/nspcc-dev/ethmpt/pkg/core/mpt"
	"github.com/nspcc-dev/ethmpt/pkg/core/storage"
	"github.com/nspcc-dev/ethmpt/pkg/crypto/hash"
	"github.com/nspcc-dev/ethmpt/pkg/services/metrics"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// KVPair is a dumped trie entry.
type KVPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

var secureFlag = cli.BoolFlag{
	Name:  "secure",
	Usage: "hash keys with Keccak-256 before accessing the trie",
}

// NewCommands returns 'db' command.
func NewCommands() []cli.Command {
	cfgFlags := []cli.Flag{options.ConfigFile, options.RelativePath, options.Debug}
	keyFlags := append([]cli.Flag{secureFlag}, cfgFlags...)
	dumpFlags := append([]cli.Flag{
		cli.StringFlag{
			Name:  "start, s",
			Usage: "hex-encoded key to start the dump from",
		},
		cli.UintFlag{
			Name:  "count, c",
			Usage: "maximum number of entries to dump (0 means all)",
		},
	}, cfgFlags...)
	return []cli.Command{
		{
			Name:  "db",
			Usage: "Persisted trie manipulation",
			Subcommands: []cli.Command{
				{
					Name:      "put",
					Usage:     "Insert or update a key",
					UsageText: "ethmpt db put [--secure] <key> <value> [--config-file file]",
					Description: `Stores hex-encoded value under hex-encoded key, commits the
   trie and prints the new root hash. An empty value removes the key.`,
					Action: putValue,
					Flags:  keyFlags,
				},
				{
					Name:      "get",
					Usage:     "Print the value stored under a key",
					UsageText: "ethmpt db get [--secure] <key> [--config-file file]",
					Action:    getValue,
					Flags:     keyFlags,
				},
				{
					Name:      "delete",
					Usage:     "Remove a key",
					UsageText: "ethmpt db delete [--secure] <key> [--config-file file]",
					Action:    deleteValue,
					Flags:     keyFlags,
				},
				{
					Name:      "root",
					Usage:     "Print the root hash of the last committed trie",
					UsageText: "ethmpt db root [--config-file file]",
					Action:    printRoot,
					Flags:     cfgFlags,
				},
				{
					Name:      "dump",
					Usage:     "Dump trie contents in key order as JSON",
					UsageText: "ethmpt db dump [--start key] [--count n] [--config-file file]",
					Action:    dumpTrie,
					Flags:     dumpFlags,
				},
			},
		},
	}
}

// trieContext is an opened persistent trie along with the services
// running for it.
type trieContext struct {
	log   *zap.Logger
	store *mpt.DBNodeStore
	trie  *mpt.Trie
	prom  *metrics.Service
}

func openTrie(ctx *cli.Context) (*trieContext, error) {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	return openTrieWithConfig(ctx.Bool("debug"), cfg)
}

func openTrieWithConfig(debug bool, cfg config.Config) (*trieContext, error) {
	log, _, err := options.HandleLoggingParams(debug, cfg.ApplicationConfiguration)
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	fail := func(err error) (*trieContext, error) {
		log.Error("failed to open the trie", zap.Error(err))
		_ = log.Sync()
		return nil, cli.NewExitError(err, 1)
	}
	st, err := storage.NewStore(cfg.ApplicationConfiguration.DBConfiguration)
	if err != nil {
		return fail(fmt.Errorf("could not initialize storage: %w", err))
	}
	ns, err := mpt.NewDBNodeStore(st, cfg.ApplicationConfiguration.Trie.NodeCacheSize, log)
	if err != nil {
		_ = st.Close()
		return fail(fmt.Errorf("could not open node store: %w", err))
	}
	head, err := ns.Head()
	if err != nil {
		_ = ns.Close()
		return fail(fmt.Errorf("could not read head root: %w", err))
	}
	prom := metrics.NewPrometheusService(cfg.ApplicationConfiguration.Prometheus, log)
	if err := prom.Start(); err != nil {
		_ = ns.Close()
		return fail(err)
	}
	log.Debug("trie opened", zap.Uint64("head", uint64(head)))
	return &trieContext{
		log:   log,
		store: ns,
		trie:  mpt.NewTrie(head, ns),
		prom:  prom,
	}, nil
}

func (tc *trieContext) close() {
	tc.prom.ShutDown()
	if err := tc.store.Close(); err != nil {
		tc.log.Error("failed to close the store", zap.Error(err))
	}
	_ = tc.log.Sync()
}

func (tc *trieContext) commit(ctx *cli.Context) error {
	h, err := tc.trie.Commit()
	if err != nil {
		return cli.NewExitError(fmt.Errorf("failed to commit: %w", err), 1)
	}
	fmt.Fprintln(ctx.App.Writer, h.Hex())
	return nil
}

// decodeHex accepts hex strings with or without 0x prefix.
func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

func parseKey(ctx *cli.Context) ([]byte, error) {
	s := ctx.Args().First()
	if len(s) == 0 {
		return nil, errors.New("no key specified")
	}
	key, err := decodeHex(s)
	if err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}
	if ctx.Bool("secure") {
		key = hash.Keccak256Bytes(key)
	}
	return key, nil
}

func putValue(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.NewExitError("expected key and value", 1)
	}
	key, err := parseKey(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	value, err := decodeHex(ctx.Args().Get(1))
	if err != nil {
		return cli.NewExitError(fmt.Errorf("invalid value: %w", err), 1)
	}
	tc, err := openTrie(ctx)
	if err != nil {
		return err
	}
	defer tc.close()

	if _, err := tc.trie.Insert(key, value); err != nil {
		return cli.NewExitError(err, 1)
	}
	return tc.commit(ctx)
}

func getValue(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("expected a single key", 1)
	}
	key, err := parseKey(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	tc, err := openTrie(ctx)
	if err != nil {
		return err
	}
	defer tc.close()

	value, err := tc.trie.Get(key)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if value == nil {
		return cli.NewExitError(fmt.Errorf("key %x not found", key), 1)
	}
	fmt.Fprintln(ctx.App.Writer, hex.EncodeToString(value))
	return nil
}

func deleteValue(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("expected a single key", 1)
	}
	key, err := parseKey(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	tc, err := openTrie(ctx)
	if err != nil {
		return err
	}
	defer tc.close()

	_, old, err := tc.trie.Remove(key)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if old == nil {
		tc.log.Info("key is missing, nothing to delete", zap.String("key", hex.EncodeToString(key)))
	}
	return tc.commit(ctx)
}

func printRoot(ctx *cli.Context) error {
	if ctx.NArg() != 0 {
		return cli.NewExitError("unexpected arguments", 1)
	}
	tc, err := openTrie(ctx)
	if err != nil {
		return err
	}
	defer tc.close()

	h, err := tc.trie.Hash()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, h.Hex())
	return nil
}

func dumpTrie(ctx *cli.Context) error {
	if ctx.NArg() != 0 {
		return cli.NewExitError("unexpected arguments", 1)
	}
	start, err := decodeHex(ctx.String("start"))
	if err != nil {
		return cli.NewExitError(fmt.Errorf("invalid start key: %w", err), 1)
	}
	count := ctx.Uint("count")
	tc, err := openTrie(ctx)
	if err != nil {
		return err
	}
	defer tc.close()

	res := make([]KVPair, 0)
	err = tc.trie.Iterate(start, func(k, v []byte) bool {
		res = append(res, KVPair{
			Key:   hex.EncodeToString(k),
			Value: hex.EncodeToString(v),
		})
		return count == 0 || uint(len(res)) < count
	})
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	enc := json.NewEncoder(ctx.App.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}
