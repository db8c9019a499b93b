package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"join numbers", []string{"join", "Int64", "Float64"}, "Real"},
		{"join tuples", []string{"join", "Tuple{Int64, Int64}", "Tuple{Int64, Vararg{Int64}}"}, "Tuple{Int64, Vararg{Int64}}"},
		{"join one", []string{"join", "String"}, "String"},
		{"split", []string{"split", "Union{Int64, Nothing}", "Nothing"}, "Int64"},
		{"subtype", []string{"subtype", "Int8", "Signed"}, "true"},
		{"not a subtype", []string{"subtype", "Signed", "Int8"}, "false"},
		{"promote", []string{"promote", "Int8", "UInt16", "Float32"}, "Float32"},
		{"promote missing", []string{"promote", "Missing", "Int64"}, "Union{Int64, Missing}"},
		{"promote-join", []string{"promote-join", "Union{Int64, Nothing}", "Float64"}, "Union{Nothing, Real}"},
		{"values", []string{"values", "1::Int32", "2.5::Float64"}, "(1::Float64, 2.5::Float64)"},
		{"apply", []string{"apply", "+", "2::Int64", "0.5::Float64"}, "2.5::Float64"},
		{"join cache", []string{"-join-cache", "128", "join", "Int8", "Int16", "UInt8"}, "Integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := runCLI(t, tt.args...)
			require.Equal(t, 0, code, errOut)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr []string
	}{
		{"unknown command", []string{"meet", "Int64"}, []string{`unknown command "meet"`}},
		{"arity", []string{"split", "Int64"}, []string{"split: wrong number of arguments: 1", "orizon-lattice split TYPE REMOVE"}},
		{"apply arity", []string{"apply", "+", "1::Int64"}, []string{"apply: wrong number of arguments: 2"}},
		{"rules takes no arguments", []string{"rules", "extra"}, []string{"rules: wrong number of arguments: 1"}},
		{"every bad type reported", []string{"join", "Foo", "Int64", "Array{"}, []string{"Foo", "Array{"}},
		{"promotion failure", []string{"values", "1::Int64", "x::String"}, []string{"failed to change any arguments"}},
		{"operator", []string{"apply", "/", "1::Int64", "2::Int64"}, []string{"/ not defined for Int64"}},
		{"bad literal", []string{"values", "abc::Int64"}, []string{"abc::Int64"}},
		{"missing type", []string{"values", "12"}, []string{"want literal::Type"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, tt.args...)
			assert.Equal(t, 1, code)
			for _, want := range tt.wantErr {
				assert.Contains(t, errOut, want)
			}
		})
	}
}

func TestRulesFile(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("version: 1.0.0\nrules:\n  - {a: Char, b: String, result: String}\n"), 0o644))

	code, out, errOut := runCLI(t, "-rules", rules, "promote", "String", "Char")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "String", strings.TrimSpace(out))

	code, out, _ = runCLI(t, "-rules", rules, "rules")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Char, String => String\n")

	t.Run("from config", func(t *testing.T) {
		cfg := filepath.Join(dir, "lattice.yaml")
		require.NoError(t, os.WriteFile(cfg, []byte("log_level: error\nrules_file: "+rules+"\n"), 0o644))
		code, out, errOut := runCLI(t, "-config", cfg, "promote", "Char", "String")
		require.Equal(t, 0, code, errOut)
		assert.Equal(t, "String", strings.TrimSpace(out))
	})

	t.Run("invalid rule set", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("version: 3.0.0\nrules: []\n"), 0o644))
		code, _, errOut := runCLI(t, "-rules", bad, "rules")
		assert.Equal(t, 1, code)
		assert.Contains(t, errOut, "Error:")
	})

	t.Run("missing rule set", func(t *testing.T) {
		code, _, errOut := runCLI(t, "-rules", filepath.Join(dir, "absent.yaml"), "rules")
		assert.Equal(t, 1, code)
		assert.Contains(t, errOut, "open rule set")
	})
}

func TestUsage(t *testing.T) {
	code, _, _ := runCLI(t)
	assert.Equal(t, 2, code)
	code, _, _ = runCLI(t, "-no-such-flag")
	assert.Equal(t, 2, code)
	code, _, _ = runCLI(t, "-log-level", "loud", "join", "Int64")
	assert.Equal(t, 1, code)

	t.Run("help on one stream", func(t *testing.T) {
		code, out, errOut := runCLI(t, "-h")
		assert.Equal(t, 0, code)
		assert.Empty(t, out)
		assert.Contains(t, errOut, "Commands:")
		assert.Contains(t, errOut, "promote-join")
		assert.Contains(t, errOut, "Options:")
		assert.Contains(t, errOut, "-join-cache")
		assert.Less(t, strings.Index(errOut, "Commands:"), strings.Index(errOut, "-join-cache"))
	})

	t.Run("command help", func(t *testing.T) {
		code, out, errOut := runCLI(t, "join", "-h")
		assert.Equal(t, 0, code)
		assert.Empty(t, out)
		assert.Contains(t, errOut, "orizon-lattice join TYPE...")
		assert.Contains(t, errOut, "orizon-lattice join Int64 Float64")
	})

	t.Run("version", func(t *testing.T) {
		code, out, _ := runCLI(t, "-version", "-json")
		require.Equal(t, 0, code)
		var info map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &info))
		assert.Equal(t, "orizon-lattice", info["tool"])
	})
}

func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()

	code, out, errOut := runCLI(t, "-join-cache", "64", "config")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "log_level: warn\njoin_cache_size: 64\n", out)

	saved := filepath.Join(dir, "saved.yaml")
	code, out, errOut = runCLI(t, "-log-level", "error", "-join-cache", "32", "config", saved)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "wrote "+saved+"\n", out)

	code, out, errOut = runCLI(t, "-config", saved, "config")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "log_level: error\njoin_cache_size: 32\n", out)

	code, out, errOut = runCLI(t, "-config", saved, "join", "Int8", "Int16", "UInt8")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "Integer", strings.TrimSpace(out))

	code, _, errOut = runCLI(t, "config", "a.yaml", "b.yaml")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "config: wrong number of arguments: 2")
}
