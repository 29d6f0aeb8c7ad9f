// Command identity is the operational entry point for the identity core:
// it applies migrations on startup and exposes the invitation lifecycle as
// subcommands for administrators. The portal's request routing lives in the
// host application; this binary is for ops and provisioning work.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/quillgate/portal/internal/identity/app"
)

func main() {
	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer application.Close()

	if err := run(application, os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(application *app.Application, args []string) error {
	ctx := context.Background()

	if len(args) == 0 {
		return fmt.Errorf("usage: identity <migrate|invite|revoke|resend|delete> [flags]")
	}

	switch args[0] {
	case "migrate":
		// Migrations already ran during app.New; reaching here means the
		// schema is current.
		return application.Ping(ctx)

	case "invite":
		fs := flag.NewFlagSet("invite", flag.ExitOnError)
		name := fs.String("name", "", "invitee name")
		email := fs.String("email", "", "invitee email")
		role := fs.String("role", "", "role to grant")
		org := fs.String("org", "", "organization id")
		by := fs.String("by", "", "inviter identity")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		inv, err := application.Invitations.Create(ctx, *name, *email, *role, *org, *by)
		if err != nil {
			return err
		}
		fmt.Printf("invitation %s created, expires %s\ntoken: %s\n",
			inv.ID, inv.ExpiresAt.Format("2006-01-02 15:04 MST"), inv.Token)
		return nil

	case "revoke":
		return application.Invitations.Revoke(ctx, tokenArg(args))

	case "resend":
		inv, err := application.Invitations.Resend(ctx, tokenArg(args))
		if err != nil {
			return err
		}
		fmt.Printf("invitation %s resent, now expires %s\n",
			inv.ID, inv.ExpiresAt.Format("2006-01-02 15:04 MST"))
		return nil

	case "delete":
		return application.Invitations.Delete(ctx, tokenArg(args))

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func tokenArg(args []string) string {
	if len(args) < 2 {
		return ""
	}
	return args[1]
}
