package db

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nspcc-dev/ethmpt/pkg/config"
	"github.com/nspcc-dev/ethmpt/pkg/core/mpt"
	"github.com/nspcc-dev/ethmpt/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/ethmpt/pkg/crypto/hash"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

type executor struct {
	t       *testing.T
	cfgPath string
	out     *bytes.Buffer
}

func newExecutor(t *testing.T) *executor {
	d := t.TempDir()
	cfg := fmt.Sprintf(`ApplicationConfiguration:
  DBConfiguration:
    Type: leveldb
    LevelDBOptions:
      DataDirectoryPath: %s
  LogLevel: error
  LogPath: %s
`, filepath.Join(d, "db"), filepath.Join(d, "ethmpt.log"))
	cfgPath := filepath.Join(d, "ethmpt.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return &executor{t: t, cfgPath: cfgPath, out: new(bytes.Buffer)}
}

func (e *executor) run(args ...string) (string, error) {
	ctl := cli.NewApp()
	ctl.Name = "ethmpt"
	ctl.Commands = NewCommands()
	ctl.Writer = e.out
	ctl.ErrWriter = e.out
	ctl.ExitErrHandler = func(*cli.Context, error) {}

	e.out.Reset()
	full := append([]string{"ethmpt", "db"}, args[0], "--config-file", e.cfgPath)
	full = append(full, args[1:]...)
	err := ctl.Run(full)
	return strings.TrimSpace(e.out.String()), err
}

func (e *executor) mustRun(args ...string) string {
	out, err := e.run(args...)
	require.NoError(e.t, err)
	return out
}

func TestPutGetDelete(t *testing.T) {
	e := newExecutor(t)
	ref := mpt.NewTrie(mpt.EmptyRef, mpt.NewMemoryNodeStore())

	require.Equal(t, mpt.EmptyRootHash.Hex(), e.mustRun("root"))

	kvs := [][2]string{
		{"646f", "76657262"},
		{"646f67", "7075707079"},
		{"0x646f6765", "636f696e"},
		{"686f727365", "7374616c6c696f6e"},
	}
	for _, kv := range kvs {
		k, err := decodeHex(kv[0])
		require.NoError(t, err)
		v, err := decodeHex(kv[1])
		require.NoError(t, err)
		_, err = ref.Insert(k, v)
		require.NoError(t, err)
		h, err := ref.Hash()
		require.NoError(t, err)
		require.Equal(t, h.Hex(), e.mustRun("put", kv[0], kv[1]))
	}
	require.Equal(t, "7075707079", e.mustRun("get", "646f67"))
	h, err := ref.Hash()
	require.NoError(t, err)
	require.Equal(t, h.Hex(), e.mustRun("root"))

	_, _, err = ref.Remove([]byte("dog"))
	require.NoError(t, err)
	h, err = ref.Hash()
	require.NoError(t, err)
	require.Equal(t, h.Hex(), e.mustRun("delete", "646f67"))

	_, err = e.run("get", "646f67")
	require.Error(t, err)

	// Missing key deletion keeps the root.
	require.Equal(t, h.Hex(), e.mustRun("delete", "ffff"))

	// Empty value is a deletion.
	_, _, err = ref.Remove([]byte("do"))
	require.NoError(t, err)
	h, err = ref.Hash()
	require.NoError(t, err)
	require.Equal(t, h.Hex(), e.mustRun("put", "646f", ""))
}

func TestSecure(t *testing.T) {
	e := newExecutor(t)
	e.mustRun("put", "--secure", "01", "02")

	_, err := e.run("get", "01")
	require.Error(t, err)
	require.Equal(t, "02", e.mustRun("get", "--secure", "01"))

	out := e.mustRun("dump")
	var res []KVPair
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, []KVPair{{
		Key:   hex.EncodeToString(hash.Keccak256Bytes([]byte{1})),
		Value: "02",
	}}, res)
}

func TestDump(t *testing.T) {
	e := newExecutor(t)

	var res []KVPair
	require.NoError(t, json.Unmarshal([]byte(e.mustRun("dump")), &res))
	require.Empty(t, res)

	for _, k := range []string{"30", "10", "20", "2010", "40"} {
		e.mustRun("put", k, "aa"+k)
	}
	require.NoError(t, json.Unmarshal([]byte(e.mustRun("dump")), &res))
	require.Equal(t, []KVPair{
		{"10", "aa10"},
		{"20", "aa20"},
		{"2010", "aa2010"},
		{"30", "aa30"},
		{"40", "aa40"},
	}, res)

	require.NoError(t, json.Unmarshal([]byte(e.mustRun("dump", "--start", "2005", "--count", "2")), &res))
	require.Equal(t, []KVPair{
		{"2010", "aa2010"},
		{"30", "aa30"},
	}, res)
}

func TestInvalidArgs(t *testing.T) {
	e := newExecutor(t)
	for name, args := range map[string][]string{
		"put no value":      {"put", "01"},
		"put bad key":       {"put", "zz", "01"},
		"put bad value":     {"put", "01", "0"},
		"get no key":        {"get"},
		"get bad key":       {"get", "0x0"},
		"get missing":       {"get", "01"},
		"delete extra args": {"delete", "01", "02"},
		"root extra args":   {"root", "01"},
		"dump bad start":    {"dump", "--start", "xyz"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := e.run(args...)
			require.Error(t, err)
		})
	}

	t.Run("missing config", func(t *testing.T) {
		e.cfgPath = filepath.Join(t.TempDir(), "none.yml")
		_, err := e.run("root")
		require.Error(t, err)
	})
}

func TestOpenFailureIsLogged(t *testing.T) {
	d := t.TempDir()
	dbPath := filepath.Join(d, "db")
	require.NoError(t, os.WriteFile(dbPath, []byte{1, 2, 3}, 0o644))
	logPath := filepath.Join(d, "ethmpt.log")

	cfg := config.Config{ApplicationConfiguration: config.ApplicationConfiguration{
		DBConfiguration: dbconfig.DBConfiguration{
			Type:           dbconfig.LevelDB,
			LevelDBOptions: dbconfig.LevelDBOptions{DataDirectoryPath: dbPath},
		},
		LogLevel: "error",
		LogPath:  logPath,
	}}
	_, err := openTrieWithConfig(false, cfg)
	require.Error(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "failed to open the trie")
	require.Contains(t, string(data), "could not initialize storage")
}
