// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Command codec-tool offers the encode/decode/keygen operations the
// original kept as standalone src/bin binaries, rebuilt as cobra
// subcommands in the teacher's cli package idiom (see
// absmach-magistrala/cli for NewXCmd()/logError/logOK/logJSON).
package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/absmach/opcua-agent/codec"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "codec-tool",
		Short: "Inspect and exercise the opcua-agent payload codec offline",
		Long: "codec-tool lets an operator generate a group session root secret\n" +
			"and encode or decode payloads against it without running the agent,\n" +
			"for debugging cloud.groupSessionPickle configuration.",
	}

	rootCmd.AddCommand(newKeygenCmd(), newEncodeCmd(), newDecodeCmd())

	if err := rootCmd.Execute(); err != nil {
		logError(err)
		os.Exit(1)
	}
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new group session root secret",
		Long:  `Prints a fresh base64-encoded root secret suitable for cloud.groupSessionPickle.`,
		Run: func(cmd *cobra.Command, args []string) {
			pickle, err := codec.NewRootSecret()
			if err != nil {
				logError(err)
				return
			}
			fmt.Println(pickle)
		},
	}
}

func newEncodeCmd() *cobra.Command {
	var pickle string

	cmd := &cobra.Command{
		Use:   "encode <payload>",
		Short: "Encode a payload the way the cloud adapter would before publish",
		Long: "Reads the payload from the argument, or from stdin if omitted,\n" +
			"and prints the base64-encoded ciphertext.",
		Run: func(cmd *cobra.Command, args []string) {
			session, err := codec.NewGroupSession(pickle)
			if err != nil {
				logError(err)
				return
			}

			payload, err := readPayload(args)
			if err != nil {
				logError(err)
				return
			}

			ciphertext, err := session.Encode(payload)
			if err != nil {
				logError(err)
				return
			}

			fmt.Println(base64.StdEncoding.EncodeToString(ciphertext))
		},
	}
	cmd.Flags().StringVarP(&pickle, "pickle", "k", "", "base64 group session root secret (required)")
	if err := cmd.MarkFlagRequired("pickle"); err != nil {
		panic(err)
	}

	return cmd
}

func newDecodeCmd() *cobra.Command {
	var pickle string

	cmd := &cobra.Command{
		Use:   "decode <ciphertext>",
		Short: "Decode a base64 ciphertext previously produced by encode",
		Long:  `Reads the ciphertext from the argument, or from stdin if omitted, and prints the plaintext payload.`,
		Run: func(cmd *cobra.Command, args []string) {
			session, err := codec.NewGroupSession(pickle)
			if err != nil {
				logError(err)
				return
			}

			encoded, err := readPayload(args)
			if err != nil {
				logError(err)
				return
			}

			ciphertext, err := base64.StdEncoding.DecodeString(string(encoded))
			if err != nil {
				logError(fmt.Errorf("decode base64 ciphertext: %w", err))
				return
			}

			payload, err := session.Decode(ciphertext)
			if err != nil {
				logError(err)
				return
			}

			fmt.Println(string(payload))
		},
	}
	cmd.Flags().StringVarP(&pickle, "pickle", "k", "", "base64 group session root secret (required)")
	if err := cmd.MarkFlagRequired("pickle"); err != nil {
		panic(err)
	}

	return cmd
}

func readPayload(args []string) ([]byte, error) {
	if len(args) > 0 {
		return []byte(args[0]), nil
	}

	payload, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return payload, nil
}

func logError(err error) {
	fmt.Fprintf(os.Stderr, "\n%s\n\n", color.RedString(err.Error()))
}
