package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cisse17/Projet-mobile-app/internal/apiclient"
	"github.com/cisse17/Projet-mobile-app/internal/bus"
	"github.com/cisse17/Projet-mobile-app/internal/config"
	"github.com/cisse17/Projet-mobile-app/internal/domain"
	"github.com/cisse17/Projet-mobile-app/internal/realtime"
	"github.com/cisse17/Projet-mobile-app/internal/security"
	"github.com/cisse17/Projet-mobile-app/internal/service"
	"github.com/cisse17/Projet-mobile-app/internal/store/sqlite"
)

func main() {
	email := flag.String("email", "", "login email (omit to restore the stored session)")
	password := flag.String("password", "", "login password")
	to := flag.Uint64("to", 0, "optional: user id to send a message to after login")
	text := flag.String("message", "", "optional: message content for -to")
	flag.Parse()

	if err := run(*email, *password, int64(*to), *text); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(email, password string, to int64, text string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	db, err := sqlite.Open(cfg.SessionDBPath)
	if err != nil {
		return fmt.Errorf("open session db: %w", err)
	}
	defer db.Close()
	if err := sqlite.Migrate(db); err != nil {
		return fmt.Errorf("migrate session db: %w", err)
	}

	var vault *security.Vault
	if cfg.SessionKey != "" {
		if vault, err = security.NewVault(cfg.SessionKey); err != nil {
			return fmt.Errorf("session vault: %w", err)
		}
	}
	tokenStore := sqlite.NewSessionStore(db, vault)

	b := bus.New()
	session := &sessionHolder{}
	api := apiclient.New(cfg.APIBaseURL, session.token)

	channel := realtime.NewManager(realtime.Options{
		BaseURL:       cfg.APIBaseURL,
		PingInterval:  cfg.PingInterval,
		PongTimeout:   cfg.PongTimeout,
		ReconnectBase: cfg.ReconnectBase,
		ReconnectMax:  cfg.ReconnectMax,
		MaxReconnects: cfg.MaxReconnects,
		Logger:        logger,
	}, b)
	defer channel.Disconnect()

	sessions := service.NewSessionService(api, tokenStore, channel, logger)
	session.service = sessions
	conversations := service.NewConversationService(api, api)

	ctx := context.Background()

	var user *domain.User
	if email != "" {
		if user, err = sessions.Login(ctx, email, password); err != nil {
			return err
		}
		logger.Info("logged in", "user", user.Username, "id", user.ID)
	} else {
		if user, err = sessions.Restore(ctx); err != nil {
			return fmt.Errorf("no usable stored session, pass -email/-password: %w", err)
		}
		logger.Info("session restored", "user", user.Username, "id", user.ID)
	}

	subscribeAll(b, logger)

	convs, unread, err := conversations.Conversations(ctx, user.ID)
	if err != nil {
		return err
	}
	fmt.Printf("%d conversations, %d unread\n", len(convs), unread)
	for _, c := range convs {
		fmt.Printf("  [%d] %s: %q (%d unread)\n", c.PeerID, c.PeerName, c.LastMessage.Content, c.UnreadCount)
	}

	if to != 0 && text != "" {
		if err := channel.SendChatMessage(text, to); err != nil {
			// Channel down; the REST path is the documented fallback.
			if _, err := api.Send(ctx, text, to); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	return nil
}

// sessionHolder breaks the construction cycle between the REST client
// (which needs a token source) and the session service (which needs the
// REST client).
type sessionHolder struct {
	service *service.SessionService
}

func (h *sessionHolder) token() string {
	if h.service == nil {
		return ""
	}
	return h.service.Token()
}

func subscribeAll(b *bus.Bus, logger *slog.Logger) {
	b.Subscribe(bus.Connected, func(bus.Payload) {
		fmt.Println("* realtime channel connected")
	})
	b.Subscribe(bus.Disconnected, func(bus.Payload) {
		fmt.Println("* realtime channel disconnected, reconnecting...")
	})
	b.Subscribe(bus.ChannelError, func(p bus.Payload) {
		fmt.Println("* channel error:", p.Err)
	})
	b.Subscribe(bus.NewMessage, func(p bus.Payload) {
		fmt.Printf("< [%d] %s\n", p.Message.SenderID, p.Message.Content)
	})
	b.Subscribe(bus.MessageSent, func(p bus.Payload) {
		logger.Debug("message acknowledged", "id", p.MessageID)
	})
	b.Subscribe(bus.MessageRead, func(p bus.Payload) {
		fmt.Printf("* message %d read by %d\n", p.Read.MessageID, p.Read.ReaderID)
	})
	b.Subscribe(bus.UnreadCount, func(p bus.Payload) {
		fmt.Printf("* %d unread messages\n", p.Count)
	})
}
