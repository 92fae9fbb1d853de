package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/config"
	"github.com/taskivo/taskivo/internal/store"
	"github.com/taskivo/taskivo/internal/store/postgres"
	"github.com/taskivo/taskivo/internal/store/sqlite"
	"github.com/taskivo/taskivo/internal/wa"
)

// openStore opens the store named by the TASKIVO_ environment, same
// resolution as the server.
func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.DBDriver == "postgres" {
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return postgres.NewWithDB(db), nil
	}
	return sqlite.New(cfg.SQLitePath)
}

func runUsers(out io.Writer) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	users, err := st.Users().List(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		name := ""
		if u.Name != nil {
			name = *u.Name
		}
		last := "never"
		if u.LastActiveTime != nil {
			last = u.LastActiveTime.Format(time.RFC3339)
		}
		fmt.Fprintf(out, "%d\t%s\t%s\tlast active: %s\n", u.ID, u.PhoneNumber, name, last)
	}
	fmt.Fprintf(out, "%d users\n", len(users))
	return nil
}

func runSend(to, body string, out io.Writer) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
		return fmt.Errorf("TASKIVO_TWILIO_ACCOUNT_SID and TASKIVO_TWILIO_AUTH_TOKEN required")
	}
	log := zerolog.Nop()
	cache := wa.NewTemplateCache(cfg.TwilioAccountSID, cfg.TwilioAuthToken, log)
	client := wa.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom, cache, log)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sid, err := client.SendText(ctx, to, body)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "sent %s\n", sid)
	return nil
}
