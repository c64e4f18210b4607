package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"chatapp-client/internal/composer"
	"chatapp-client/internal/config"
	"chatapp-client/internal/directory"
	"chatapp-client/internal/feed"
	"chatapp-client/internal/gotrue"
	"chatapp-client/internal/models"
	"chatapp-client/internal/poller"
	"chatapp-client/internal/postgrest"
	"chatapp-client/internal/session"
	"chatapp-client/internal/storage"
)

func setupLogger(cfg config.LogConfig) (*zap.SugaredLogger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{"stderr"}
	if cfg.File != "" {
		zapCfg.OutputPaths = []string{cfg.File}
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func pickServer(servers []models.Server, name string) (models.Server, error) {
	if len(servers) == 0 {
		return models.Server{}, fmt.Errorf("you are not a member of any server")
	}
	if name == "" {
		return servers[0], nil
	}
	for _, srv := range servers {
		if strings.EqualFold(srv.Name, name) {
			return srv, nil
		}
	}
	return models.Server{}, fmt.Errorf("no server named %q", name)
}

func pickChannel(groups directory.ChannelGroups, name string) (models.Channel, error) {
	if len(groups.Text) == 0 {
		return models.Channel{}, fmt.Errorf("server has no text channels")
	}
	if name == "" {
		return groups.Text[0], nil
	}
	for _, ch := range groups.Text {
		if strings.EqualFold(ch.Name, name) {
			return ch, nil
		}
	}
	return models.Channel{}, fmt.Errorf("no text channel named %q", name)
}

func printMessages(msgs []models.Message) {
	for _, msg := range msgs {
		author := msg.UserID
		if msg.User != nil {
			author = msg.User.Username
		}
		edited := ""
		if msg.Edited() {
			edited = " (edited)"
		}
		fmt.Printf("[%s] %s: %s%s\n", msg.CreatedAt, author, msg.Content, edited)
		for _, url := range msg.Attachments {
			fmt.Printf("    attachment: %s\n", url)
		}
	}
}

func main() {
	configPath := flag.String("config", "config.toml", "path to the config file")
	serverName := flag.String("server", "", "server to open (defaults to the first one)")
	channelName := flag.String("channel", "", "text channel to open (defaults to the first one)")
	flag.Parse()

	fmt.Println("Reading config file...")
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println("Setting up logger...")
	sugar, err := setupLogger(cfg.Log)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer sugar.Sync()

	auth := gotrue.New(cfg.Backend.URL, cfg.Backend.AnonKey, sugar)
	data := postgrest.New(cfg.Backend.URL, cfg.Backend.AnonKey, sugar)
	store := storage.New(cfg.Backend.URL, cfg.Backend.AnonKey, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Signing in...")
	sess, err := auth.SignIn(ctx, cfg.Auth.Email, cfg.Auth.Password)
	if err != nil {
		sugar.Fatal(err)
	}
	data.SetToken(sess.AccessToken)
	store.SetToken(sess.AccessToken)

	gate := session.NewGate(auth, data, sugar)
	me, err := gate.Current(ctx)
	if errors.Is(err, session.ErrNotAuthenticated) {
		fmt.Println("Session rejected. Check the [auth] credentials in your config file and sign in again.")
		return
	}
	if err != nil {
		sugar.Fatal(err)
	}
	fmt.Printf("Signed in as %s\n", me.Username)

	dir := directory.New(data, sugar)

	servers, err := dir.Servers(ctx, me.ID)
	if err != nil {
		sugar.Fatal(err)
	}
	srv, err := pickServer(servers, *serverName)
	if err != nil {
		sugar.Fatal(err)
	}

	groups, err := dir.Channels(ctx, srv.ID)
	if err != nil {
		sugar.Fatal(err)
	}
	ch, err := pickChannel(groups, *channelName)
	if err != nil {
		sugar.Fatal(err)
	}
	fmt.Printf("Joined %s / #%s\n", srv.Name, ch.Name)

	channelFeed := feed.NewChannelFeed(data, sugar, ch.ID)
	channelFeed.OnChange = func() {
		printMessages(channelFeed.Messages())
	}
	if err := channelFeed.Load(ctx); err != nil {
		sugar.Fatal(err)
	}

	scheduler := poller.NewScheduler(cfg.PollInterval(), sugar)
	sub := scheduler.Subscribe(channelFeed.Topic(), channelFeed.Poll)

	write := composer.New(data, store, sugar, me.ID)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			write.SetContent(scanner.Text())
			if err := write.SendChannelMessage(ctx, ch.ID); err != nil {
				sugar.Errorw("sending message", "error", err)
			}
		}
		stop()
	}()

	<-ctx.Done()

	fmt.Println("Signing out...")
	sub.Stop()
	if err := gate.SignOut(context.Background(), me.ID); err != nil {
		sugar.Errorw("signing out", "error", err)
	}
}
