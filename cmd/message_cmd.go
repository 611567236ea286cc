package cmd

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/pkg/errors"
	"github.com/ratersapp/siws/internal/api"
	"github.com/ratersapp/siws/internal/utilities/siws"
	"github.com/spf13/cobra"
)

// messageCmd groups offline helpers around sign-in messages. None of them
// need configuration.
func messageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Render, parse, sign and verify sign-in messages",
	}

	cmd.AddCommand(
		messageRenderCmd(),
		messageParseCmd(),
		messageSignCmd(),
		messageVerifyCmd(),
	)

	// failures are about the input, not about how the command was invoked
	for _, sub := range cmd.Commands() {
		sub.SilenceUsage = true
	}

	return cmd
}

func messageRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render [file]",
		Short: "Render a JSON sign-in input as message text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			var input siws.SignInInput
			if err := json.Unmarshal(raw, &input); err != nil {
				return errors.Wrap(err, "decoding sign-in input")
			}

			message, err := siws.ConstructMessage(input)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), message)
			return err
		},
	}
}

func messageParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse message text into its JSON fields",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			parsed, err := siws.ParseMessage(trimFinalNewline(string(raw)))
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), parsed)
		},
	}
}

func messageSignCmd() *cobra.Command {
	var secretKey string

	cmd := &cobra.Command{
		Use:   "sign [file]",
		Short: "Sign message text the way a wallet does and print the verification body",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := decodeSecretKey(secretKey)
			if err != nil {
				return err
			}

			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			message := trimFinalNewline(string(raw))

			signature := ed25519.Sign(key, []byte(message))

			return writeJSON(cmd.OutOrStdout(), &api.VerifyParams{
				Signature: &api.SignatureParams{Data: siws.ByteValues(signature)},
				Message:   message,
				PublicKey: siws.EncodePublicKey(key.Public().(ed25519.PublicKey)),
			})
		},
	}

	cmd.Flags().StringVar(&secretKey, "secret-key", "", "base58 encoded 64 byte keypair or 32 byte seed")
	_ = cmd.MarkFlagRequired("secret-key")

	return cmd
}

func messageVerifyCmd() *cobra.Command {
	var canonical bool

	cmd := &cobra.Command{
		Use:   "verify [file]",
		Short: "Verify a JSON verification body",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			var params api.VerifyParams
			if err := json.Unmarshal(raw, &params); err != nil {
				return errors.Wrap(err, "decoding verification body")
			}

			resp := verifyParams(&params, canonical)
			if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			if !resp.Valid {
				return errors.New("signature is not valid")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&canonical, "canonical", true, "require the message to follow the sign-in grammar")

	return cmd
}

func verifyParams(params *api.VerifyParams, canonical bool) *api.VerifyResponse {
	signature, reason := params.Decode()
	if reason != "" {
		return &api.VerifyResponse{Message: reason}
	}

	if canonical {
		if _, err := params.ParseAndValidate(siws.ValidationParams{}); err != nil {
			return &api.VerifyResponse{Message: err.Error()}
		}
	}

	valid, err := siws.VerifySignature(params.Message, signature, params.PublicKey)
	if err != nil {
		return &api.VerifyResponse{Message: err.Error()}
	}

	return &api.VerifyResponse{Valid: valid}
}

func decodeSecretKey(encoded string) (ed25519.PrivateKey, error) {
	decoded := base58.Decode(encoded)

	switch len(decoded) {
	case ed25519.PrivateKeySize:
		key := ed25519.PrivateKey(decoded)
		if !key.Public().(ed25519.PublicKey).Equal(ed25519.NewKeyFromSeed(key.Seed()).Public()) {
			return nil, errors.New("secret key public half does not belong to its seed")
		}
		return key, nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(decoded), nil
	default:
		return nil, fmt.Errorf("secret key must decode to %d or %d bytes, got %d", ed25519.PrivateKeySize, ed25519.SeedSize, len(decoded))
	}
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", args[0])
	}
	return raw, nil
}

// trimFinalNewline drops the single newline editors and shells append to
// files. Sign-in messages never end with one.
func trimFinalNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
