package main

import (
	"fmt"
	"io"
	mathrand "math/rand"
	"os"
	"strings"

	"solitaire-cipher/backend/internal/logging"
	"solitaire-cipher/backend/internal/solitaire"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type cliFlags struct {
	LogLevel string
	DeckFile string
	Message  string
	Policy   string
	Count    int
	Seed     int64
	MaxRetry int
	logger   zerolog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:          "solitaire",
		Short:        "Encrypt and decrypt messages with a 28-card Solitaire keystream",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logging.Options{Level: flags.LogLevel, Format: "text", Out: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			flags.logger = logger
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().IntVar(&flags.MaxRetry, "max-retries", solitaire.DefaultMaxRetries, "Joker rejections allowed per key; negative means unbounded")

	cmdDeck := &cobra.Command{
		Use:   "deck",
		Short: "Print a random deck in the deck file format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var d *solitaire.Deck
			if cmd.Flags().Changed("seed") {
				d = solitaire.NewRandomDeckFrom(mathrand.New(mathrand.NewSource(flags.Seed)))
			} else {
				d = solitaire.NewRandomDeck()
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), d.String())
			return err
		},
	}
	cmdDeck.Flags().Int64Var(&flags.Seed, "seed", 0, "Seed for a reproducible shuffle (not for real keys)")

	cmdEncrypt := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a message read from --message or stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCipher(cmd, flags, true)
		},
	}

	cmdDecrypt := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a message read from --message or stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCipher(cmd, flags, false)
		},
	}
	cmdDecrypt.Flags().StringVar(&flags.Policy, "policy", "strict", "Handling of non A-Z ciphertext: strict, strip or pass")

	for _, c := range []*cobra.Command{cmdEncrypt, cmdDecrypt} {
		c.Flags().StringVarP(&flags.DeckFile, "deck", "d", "", "Deck file: 28 whitespace separated integers")
		c.Flags().StringVarP(&flags.Message, "message", "m", "", "Message text (default: read stdin)")
		_ = c.MarkFlagRequired("deck")
	}

	cmdKeystream := &cobra.Command{
		Use:   "keystream",
		Short: "Print the first N keys a deck produces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.Count <= 0 {
				return fmt.Errorf("-n must be positive")
			}
			d, err := loadDeck(flags.DeckFile)
			if err != nil {
				return err
			}
			ks := solitaire.NewKeystream(d, solitaire.WithMaxRetries(flags.MaxRetry))
			keys, err := ks.Keys(flags.Count)
			if err != nil {
				return err
			}
			parts := make([]string, len(keys))
			for i, k := range keys {
				parts[i] = fmt.Sprint(k)
			}
			flags.logger.Debug().Str("deck", ks.Deck().String()).Msg("deck after keystream")
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " "))
			return err
		},
	}
	cmdKeystream.Flags().StringVarP(&flags.DeckFile, "deck", "d", "", "Deck file: 28 whitespace separated integers")
	cmdKeystream.Flags().IntVarP(&flags.Count, "count", "n", 10, "Number of keys")
	_ = cmdKeystream.MarkFlagRequired("deck")

	root.AddCommand(cmdDeck, cmdEncrypt, cmdDecrypt, cmdKeystream)
	return root
}

func runCipher(cmd *cobra.Command, flags *cliFlags, encrypt bool) error {
	d, err := loadDeck(flags.DeckFile)
	if err != nil {
		return err
	}

	text := flags.Message
	if !cmd.Flags().Changed("message") {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}
		text = string(b)
	}

	ks := solitaire.NewKeystream(d, solitaire.WithMaxRetries(flags.MaxRetry))
	var out string
	if encrypt {
		out, err = solitaire.NewCipher(ks).Encrypt(text)
	} else {
		policy, perr := solitaire.ParseDecryptPolicy(flags.Policy)
		if perr != nil {
			return perr
		}
		out, err = solitaire.NewCipher(ks, solitaire.WithDecryptPolicy(policy)).Decrypt(strings.TrimRight(text, "\r\n"))
	}
	if err != nil {
		return err
	}
	flags.logger.Debug().Int("keys", ks.Drawn()).Msg("done")
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func loadDeck(path string) (*solitaire.Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, err := solitaire.ReadDeck(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}
