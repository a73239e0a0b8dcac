package yggdrasil

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"go.minekube.com/yggdrasil/pkg/auth"
	"go.minekube.com/yggdrasil/pkg/config"
	"go.minekube.com/yggdrasil/pkg/util/profile"
)

func digestCommand() *cli.Command {
	return &cli.Command{
		Name:      "digest",
		Usage:     "Print the server hash sent to the session server",
		ArgsUsage: "<serverId>",
		Description: `Computes the Minecraft style SHA-1 digest of the server id,
shared secret and public key as used by join and hasJoined requests.
Without secret and key it prints the digest of the server id alone:

	yggdrasil digest Notch    # 4ed1f46bbe04bc756bcb17c0c7ce3e4632f06a48`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "secret",
				Usage: "Hex encoded shared secret",
			},
			&cli.StringFlag{
				Name:  "key",
				Usage: "Hex encoded server public key (ASN.1 DER)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 1 {
				return cli.Exit("expected at most one server id argument", 1)
			}
			secret, err := hexFlag(c, "secret")
			if err != nil {
				return err
			}
			key, err := hexFlag(c, "key")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, auth.ServerIDHash(c.Args().First(), secret, key))
			return err
		},
	}
}

var outputFlag = &cli.StringFlag{
	Name:    "output",
	Aliases: []string{"o"},
	Usage:   "Output format of the profile: yaml or json",
	Value:   "yaml",
}

func loginCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in to an account and optionally join a server",
		Description: `Authenticates against the authentication server and prints the selected profile.
If a public key is given the session server is told that the profile joins
the server with that key. Secrets and tokens are never printed.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "username",
				Aliases:  []string{"u"},
				Usage:    "Account username or email",
				EnvVars:  []string{"YGGDRASIL_USERNAME"},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "password",
				Aliases:  []string{"p"},
				Usage:    "Account password",
				EnvVars:  []string{"YGGDRASIL_PASSWORD"},
				Required: true,
			},
			&cli.StringFlag{
				Name:  "client-token",
				Usage: "Client token of a previous session, a random one is generated if empty",
			},
			&cli.StringFlag{
				Name:  "server-id",
				Usage: "Server id sent in the encryption request, usually empty",
			},
			&cli.StringFlag{
				Name:  "public-key",
				Usage: "Hex encoded server public key (ASN.1 DER) to join",
			},
			&cli.StringFlag{
				Name:  "secret",
				Usage: "Hex encoded shared secret to join with, a random one is generated if empty",
			},
			outputFlag,
		},
		Action: func(c *cli.Context) error {
			publicKey, err := hexFlag(c, "public-key")
			if err != nil {
				return err
			}
			secret, err := hexFlag(c, "secret")
			if err != nil {
				return err
			}

			s, err := newSession(e.cfg, c.String("client-token"))
			if err != nil {
				return cli.Exit(err, 1)
			}
			ctx := c.Context
			if err = s.Authenticate(ctx, c.String("username"), c.String("password")); err != nil {
				if errors.Is(err, auth.ErrAuthenticationFailed) {
					return cli.Exit(fmt.Errorf("could not log in: %w", err), 1)
				}
				return cli.Exit(fmt.Errorf("error logging in: %w", err), 1)
			}
			e.log.Info("logged in", "profile", s.GameProfile().Name)

			if len(publicKey) != 0 {
				if len(secret) == 0 {
					if secret, err = auth.GenerateSharedSecret(); err != nil {
						return cli.Exit(err, 1)
					}
				}
				hash, err := s.Join(ctx, c.String("server-id"), secret, publicKey)
				if err != nil {
					return cli.Exit(fmt.Errorf("could not join server: %w", err), 1)
				}
				e.log.Info("joined server via sessionserver", "serverHash", hash)
			}

			return writeProfile(c.App.Writer, c.String("output"), s.GameProfile())
		},
	}
}

func hasJoinedCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "has-joined",
		Usage: "Verify a joining player like an online mode server",
		Description: `Asks the session server whether the player has joined the server
with the given server id, shared secret and public key and prints the
authoritative profile. Exits with an error if the player is rejected.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "username",
				Aliases:  []string{"u"},
				Usage:    "Player name claimed by the joining client",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "server-id",
				Usage: "Server id sent in the encryption request, usually empty",
			},
			&cli.StringFlag{
				Name:     "secret",
				Usage:    "Hex encoded shared secret",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "key",
				Usage:    "Hex encoded server public key (ASN.1 DER)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "ip",
				Usage: "IP of the joining client, only sent if preventProxyConnections is enabled",
			},
			outputFlag,
		},
		Action: func(c *cli.Context) error {
			secret, err := hexFlag(c, "secret")
			if err != nil {
				return err
			}
			key, err := hexFlag(c, "key")
			if err != nil {
				return err
			}
			ip := c.String("ip")
			if ip != "" && !e.cfg.PreventProxyConnections {
				e.log.V(1).Info("not sending ip since preventProxyConnections is disabled")
				ip = ""
			}

			s, err := newSession(e.cfg, "")
			if err != nil {
				return cli.Exit(err, 1)
			}
			p, err := s.VerifyJoin(c.Context, c.String("username"), c.String("server-id"), secret, key, ip)
			if err != nil {
				return cli.Exit(fmt.Errorf("server rejected connection: %w", err), 1)
			}
			return writeProfile(c.App.Writer, c.String("output"), p)
		},
	}
}

// newSession returns a new session for cfg.
func newSession(cfg *config.Config, clientToken string) (*auth.Session, error) {
	httpOptions := auth.HTTPOptions{Timeout: cfg.Timeout.T()}
	if cfg.Timeout == 0 {
		// no timeout at all
		httpOptions.Client = &http.Client{}
	}
	return auth.NewSession(auth.Options{
		Transport:        auth.NewHTTPTransport(httpOptions),
		AuthServerURL:    cfg.AuthServerURL.String(),
		SessionServerURL: cfg.SessionServerURL.String(),
		ClientToken:      clientToken,
		RequestUser:      cfg.RequestUser,
	})
}

func hexFlag(c *cli.Context, name string) ([]byte, error) {
	b, err := hex.DecodeString(c.String(name))
	if err != nil {
		return nil, cli.Exit(fmt.Errorf("invalid hex in --%s: %w", name, err), 1)
	}
	return b, nil
}

func writeProfile(w io.Writer, format string, p *profile.GameProfile) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(profileDoc(p)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return cli.Exit(fmt.Sprintf("unknown output format: %s (valid formats: yaml, json)", format), 1)
	}
}

// profileDoc is the yaml form of a profile with the undashed id Mojang uses.
func profileDoc(p *profile.GameProfile) map[string]any {
	doc := map[string]any{
		"id":   p.ID.Undashed(),
		"name": p.Name,
	}
	if len(p.Properties) != 0 {
		props := make([]map[string]string, 0, len(p.Properties))
		for _, prop := range p.Properties {
			m := map[string]string{"name": prop.Name, "value": prop.Value}
			if prop.Signature != "" {
				m["signature"] = prop.Signature
			}
			props = append(props, m)
		}
		doc["properties"] = props
	}
	return doc
}
