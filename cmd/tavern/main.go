package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/tavern-app/tavern/internal/config"
	"github.com/tavern-app/tavern/internal/database"
	"github.com/tavern-app/tavern/internal/live"
	"github.com/tavern-app/tavern/internal/models"
	"github.com/tavern-app/tavern/internal/repository"
	"github.com/tavern-app/tavern/internal/session"
)

const help = `commands:
  register <user> <pass>   create an account and log in
  login <user> <pass>      log in
  logout                   log out
  feed                     show all posts
  post <title> | <content> publish a post
  open <id>                open a post's discussion
  comment <text>           reply to the open post
  cheer <id>               toggle your cheer on a post
  delete <id>              delete your own post
  search <keyword>         live search
  profile <user>           view a profile
  bio <text>               update your bio
  quit                     exit`

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	tracker := live.NewTracker()
	repo := repository.New(db, tracker, log)
	sess := session.New(repo, log, session.Options{
		BioPlaceholder: cfg.BioPlaceholder,
		BcryptCost:     cfg.BcryptCost,
	})
	defer sess.Close()

	fmt.Println("Welcome to the Tavern. Type 'help' for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(prompt(sess))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		run(sess, line)
	}
}

func prompt(sess *session.Session) string {
	if user := sess.CurrentUser.Get(); user != nil {
		return user.Username + "> "
	}
	return "anonymous> "
}

func run(sess *session.Session, line string) {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "help":
		fmt.Println(help)

	case "register":
		user, pass, ok := strings.Cut(rest, " ")
		if !ok {
			fmt.Println("usage: register <user> <pass>")
			return
		}
		<-sess.Register(user, strings.TrimSpace(pass))
		reportAuth(sess)

	case "login":
		user, pass, ok := strings.Cut(rest, " ")
		if !ok {
			fmt.Println("usage: login <user> <pass>")
			return
		}
		<-sess.Login(user, strings.TrimSpace(pass))
		reportAuth(sess)

	case "logout":
		sess.Logout()
		fmt.Println("logged out")

	case "feed":
		printPosts(sess, sess.Posts.Get())

	case "post":
		if sess.CurrentUser.Get() == nil {
			fmt.Println("log in first")
			return
		}
		title, content, ok := strings.Cut(rest, "|")
		if !ok {
			fmt.Println("usage: post <title> | <content>")
			return
		}
		<-sess.CreatePost(strings.TrimSpace(title), strings.TrimSpace(content))
		settle()
		fmt.Println("posted")

	case "open":
		post := findPost(sess, rest)
		if post == nil {
			fmt.Println("no such post")
			return
		}
		sess.SelectPost(post)
		settle()
		fmt.Printf("-- %s by %s --\n%s\n", post.Title, post.Author, post.Content)
		for _, c := range sess.Comments.Get() {
			fmt.Printf("  %s: %s\n", c.Author, c.Content)
		}

	case "comment":
		if sess.SelectedPost.Get() == nil {
			fmt.Println("open a post first")
			return
		}
		<-sess.AddComment(rest)
		settle()
		for _, c := range sess.Comments.Get() {
			fmt.Printf("  %s: %s\n", c.Author, c.Content)
		}

	case "cheer":
		post := findPost(sess, rest)
		if post == nil {
			fmt.Println("no such post")
			return
		}
		<-sess.ToggleCheer(*post)
		settle()
		fmt.Printf("%s now has %d cheer(s)\n", post.Title, cheerCount(sess, post.ID))

	case "delete":
		post := findPost(sess, rest)
		if post == nil {
			fmt.Println("no such post")
			return
		}
		<-sess.DeletePost(*post)
		settle()
		fmt.Println("done")

	case "search":
		sess.UpdateSearchQuery(rest)
		settle()
		if !sess.Searching.Get() {
			fmt.Println("search cleared")
			return
		}
		printPosts(sess, sess.SearchResults.Get())

	case "profile":
		sess.ViewProfile(rest)
		settle()
		user := sess.ProfileUser.Get()
		if user == nil {
			fmt.Println("no such user")
			return
		}
		fmt.Printf("%s (joined %s)\n%s\n", user.Username, user.JoinedAt.Format("2006-01-02"), user.Bio)
		printPosts(sess, sess.ProfilePosts.Get())

	case "bio":
		user := sess.CurrentUser.Get()
		if user == nil {
			fmt.Println("log in first")
			return
		}
		<-sess.UpdateProfile(rest, user.Avatar)
		fmt.Println("bio updated")

	default:
		fmt.Println("unknown command; type 'help'")
	}
}

func reportAuth(sess *session.Session) {
	if msg := sess.AuthError.Get(); msg != "" {
		fmt.Println(msg)
		return
	}
	if user := sess.CurrentUser.Get(); user != nil {
		fmt.Printf("welcome, %s\n", user.Username)
	}
}

func printPosts(sess *session.Session, posts []models.Post) {
	if len(posts) == 0 {
		fmt.Println("(nothing here)")
		return
	}
	for _, p := range posts {
		fmt.Printf("[%d] %s by %s (%d cheers)\n", p.ID, p.Title, p.Author, cheerCount(sess, p.ID))
	}
}

func findPost(sess *session.Session, arg string) *models.Post {
	id, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 32)
	if err != nil {
		return nil
	}
	for _, p := range sess.Posts.Get() {
		if p.ID == uint(id) {
			return &p
		}
	}
	return nil
}

// cheerCount reads one value from the live count subscription.
func cheerCount(sess *session.Session, postID uint) int64 {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	select {
	case n := <-sess.WatchCheerCount(ctx, postID):
		return n
	case <-ctx.Done():
		return 0
	}
}

// settle gives the live pipeline a moment to propagate before state cells
// are read back for display.
func settle() {
	time.Sleep(100 * time.Millisecond)
}
