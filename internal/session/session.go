// Package session holds the client-visible state of one Tavern session.
// The presentation layer reads and watches the state cells and calls the
// operations; it never sees the repository or the store underneath.
package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tavern-app/tavern/internal/live"
	"github.com/tavern-app/tavern/internal/models"
	"github.com/tavern-app/tavern/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

// Options tunes per-session account defaults.
type Options struct {
	BioPlaceholder string
	BcryptCost     int
}

// Session owns the observable state cells and the task scope their updates
// run in. Close cancels every in-flight operation and live subscription.
//
// Cells are independent: the presentation layer must not assume two cells
// update in any particular relative order.
type Session struct {
	repo *repository.Repository
	log  zerolog.Logger
	opts Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	Posts         *live.Cell[[]models.Post]
	CurrentUser   *live.Cell[*models.User]
	AuthError     *live.Cell[string]
	Busy          *live.Cell[bool]
	SelectedPost  *live.Cell[*models.Post]
	Comments      *live.Cell[[]models.Comment]
	SearchQuery   *live.Cell[string]
	SearchResults *live.Cell[[]models.Post]
	Searching     *live.Cell[bool]
	ProfileUser   *live.Cell[*models.User]
	ProfilePosts  *live.Cell[[]models.Post]

	mu             sync.Mutex
	cancelComments context.CancelFunc
	cancelSearch   context.CancelFunc
	cancelProfile  context.CancelFunc
	commentsGen    uint64
	searchGen      uint64
	profileGen     uint64
}

// New creates a session over repo and starts the global feed subscription.
func New(repo *repository.Repository, log zerolog.Logger, opts Options) *Session {
	if opts.BioPlaceholder == "" {
		opts.BioPlaceholder = models.DefaultBio
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		repo:   repo,
		log:    log,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,

		Posts:         live.NewCell[[]models.Post](nil),
		CurrentUser:   live.NewCell[*models.User](nil),
		AuthError:     live.NewCell(""),
		Busy:          live.NewCell(false),
		SelectedPost:  live.NewCell[*models.Post](nil),
		Comments:      live.NewCell[[]models.Comment](nil),
		SearchQuery:   live.NewCell(""),
		SearchResults: live.NewCell[[]models.Post](nil),
		Searching:     live.NewCell(false),
		ProfileUser:   live.NewCell[*models.User](nil),
		ProfilePosts:  live.NewCell[[]models.Post](nil),
	}

	// The feed outlives login state; it runs for the whole session.
	pump(ctx, &s.wg, repo.WatchAllPosts(ctx), s.Posts.Set)

	return s
}

// Close tears the session down: all subscriptions stop and in-flight
// operations are waited for.
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
}

// pump forwards emissions from ch into set until ctx ends or ch closes.
func pump[T any](ctx context.Context, wg *sync.WaitGroup, ch <-chan T, set func(T)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-ch:
				if !ok || ctx.Err() != nil {
					return
				}
				set(v)
			}
		}
	}()
}

// guard wraps set for a replaceable subscription. gen is the generation the
// subscription was started under; current is bumped, under mu, every time the
// subscription is replaced or dropped. A pump that already pulled a value off
// its channel when its context was cancelled hits the generation check and
// the stale write is discarded instead of landing after the replacement's
// first emission.
func guard[T any](mu *sync.Mutex, current *uint64, gen uint64, set func(T)) func(T) {
	return func(v T) {
		mu.Lock()
		defer mu.Unlock()
		if *current != gen {
			return
		}
		set(v)
	}
}

// launch runs fn in the session's task scope and returns a channel closed on
// completion. When busy is set, the global busy flag is raised first and
// always cleared afterwards, error or not. Failures are logged, never
// propagated past this layer.
func (s *Session) launch(op string, busy bool, fn func(ctx context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	task := uuid.NewString()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		if busy {
			s.Busy.Set(true)
			defer s.Busy.Set(false)
		}
		if err := fn(s.ctx); err != nil {
			s.log.Error().Err(err).Str("op", op).Str("task", task).Msg("operation failed")
		}
	}()
	return done
}

// Login authenticates and, on success, enters the authenticated state. Bad
// credentials surface as text in the AuthError cell.
func (s *Session) Login(username, password string) <-chan struct{} {
	return s.launch("login", true, func(context.Context) error {
		user, err := s.repo.Login(username, password)
		if err != nil {
			s.AuthError.Set("Something went wrong. Please try again.")
			return err
		}
		if user == nil {
			s.AuthError.Set("Invalid username or password.")
			return nil
		}
		s.AuthError.Set("")
		s.CurrentUser.Set(user)
		return nil
	})
}

// Register creates the account and logs it straight in on success. A taken
// username surfaces as text in the AuthError cell.
func (s *Session) Register(username, password string) <-chan struct{} {
	return s.launch("register", true, func(context.Context) error {
		user := &models.User{
			Username: username,
			Bio:      s.opts.BioPlaceholder,
			Settings: models.JSON{JSON: datatypes.JSON("{}")},
			JoinedAt: time.Now(),
		}
		if err := user.SetPassword(password, s.opts.BcryptCost); err != nil {
			s.AuthError.Set("Something went wrong. Please try again.")
			return err
		}

		ok, err := s.repo.Register(user)
		if err != nil {
			s.AuthError.Set("Something went wrong. Please try again.")
			return err
		}
		if !ok {
			s.AuthError.Set("That username is already taken.")
			return nil
		}
		s.AuthError.Set("")
		s.CurrentUser.Set(user)
		return nil
	})
}

// Logout returns to the anonymous state and clears every per-user cell, so a
// different account logging in later sees none of the previous user's state.
func (s *Session) Logout() {
	s.CurrentUser.Set(nil)
	s.SelectPost(nil)
	s.ExitProfile()
	s.ClearSearch()
	s.AuthError.Set("")
}

// ClearError empties the auth error cell.
func (s *Session) ClearError() {
	s.AuthError.Set("")
}

// CreatePost publishes a post authored by the acting user. Anonymous calls
// are silent no-ops.
func (s *Session) CreatePost(title, content string) <-chan struct{} {
	return s.launch("create-post", true, func(context.Context) error {
		user := s.CurrentUser.Get()
		if user == nil {
			return nil
		}
		return s.repo.AddPost(&models.Post{
			Author:  user.Username,
			Title:   title,
			Content: content,
		})
	})
}

// DeletePost removes the post if the acting user wrote it. A mismatch is a
// silent no-op; ownership is enforced only here, not in the repository.
func (s *Session) DeletePost(post models.Post) <-chan struct{} {
	return s.launch("delete-post", true, func(context.Context) error {
		user := s.CurrentUser.Get()
		if user == nil || user.Username != post.Author {
			s.log.Debug().
				Str("post_author", post.Author).
				Msg("delete refused: acting user is not the author")
			return nil
		}
		if err := s.repo.DeletePost(post.ID); err != nil {
			return err
		}
		if selected := s.SelectedPost.Get(); selected != nil && selected.ID == post.ID {
			s.SelectPost(nil)
		}
		return nil
	})
}

// SelectPost enters the discussion view for post, replacing any previous
// comments subscription; the old one stops delivering before the new one
// starts. Passing nil leaves the view and empties the comments cell.
func (s *Session) SelectPost(post *models.Post) {
	s.mu.Lock()
	if s.cancelComments != nil {
		s.cancelComments()
		s.cancelComments = nil
	}
	s.commentsGen++
	gen := s.commentsGen
	var ctx context.Context
	if post != nil {
		ctx, s.cancelComments = context.WithCancel(s.ctx)
	}
	s.mu.Unlock()

	s.SelectedPost.Set(post)
	s.Comments.Set(nil)
	if post == nil {
		return
	}
	pump(ctx, &s.wg, s.repo.WatchComments(ctx, post.ID),
		guard(&s.mu, &s.commentsGen, gen, s.Comments.Set))
}

// AddComment replies to the selected post as the acting user. Without a
// user or a selected post this is a silent no-op.
func (s *Session) AddComment(content string) <-chan struct{} {
	return s.launch("add-comment", true, func(context.Context) error {
		user := s.CurrentUser.Get()
		post := s.SelectedPost.Get()
		if user == nil || post == nil {
			return nil
		}
		return s.repo.AddComment(&models.Comment{
			PostID:  post.ID,
			Author:  user.Username,
			Content: content,
		})
	})
}

// UpdateSearchQuery records the query text and re-subscribes the live
// search. Blank text forces search mode off with cleared results; the store
// never sees a blank keyword.
func (s *Session) UpdateSearchQuery(query string) {
	s.SearchQuery.Set(query)

	s.mu.Lock()
	if s.cancelSearch != nil {
		s.cancelSearch()
		s.cancelSearch = nil
	}
	s.searchGen++
	gen := s.searchGen
	if strings.TrimSpace(query) == "" {
		s.mu.Unlock()
		s.Searching.Set(false)
		s.SearchResults.Set(nil)
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelSearch = cancel
	s.mu.Unlock()

	s.Searching.Set(true)
	pump(ctx, &s.wg, s.repo.WatchSearchPosts(ctx, query),
		guard(&s.mu, &s.searchGen, gen, s.SearchResults.Set))
}

// ClearSearch exits search mode and clears the query and results.
func (s *Session) ClearSearch() {
	s.mu.Lock()
	if s.cancelSearch != nil {
		s.cancelSearch()
		s.cancelSearch = nil
	}
	s.searchGen++
	s.mu.Unlock()

	s.SearchQuery.Set("")
	s.Searching.Set(false)
	s.SearchResults.Set(nil)
}

// ViewProfile opens username's profile: a live view of the user record and
// their posts, replacing any previous profile subscription. A nonexistent
// username yields a nil profile cell, not an error.
func (s *Session) ViewProfile(username string) {
	s.mu.Lock()
	if s.cancelProfile != nil {
		s.cancelProfile()
	}
	s.profileGen++
	gen := s.profileGen
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelProfile = cancel
	s.mu.Unlock()

	pump(ctx, &s.wg, s.repo.WatchUser(ctx, username),
		guard(&s.mu, &s.profileGen, gen, s.ProfileUser.Set))
	pump(ctx, &s.wg, s.repo.WatchPostsByAuthor(ctx, username),
		guard(&s.mu, &s.profileGen, gen, s.ProfilePosts.Set))
}

// ExitProfile leaves the profile view.
func (s *Session) ExitProfile() {
	s.mu.Lock()
	if s.cancelProfile != nil {
		s.cancelProfile()
		s.cancelProfile = nil
	}
	s.profileGen++
	s.mu.Unlock()

	s.ProfileUser.Set(nil)
	s.ProfilePosts.Set(nil)
}

// UpdateProfile overwrites the acting user's bio and avatar with a full
// record write.
func (s *Session) UpdateProfile(bio, avatar string) <-chan struct{} {
	return s.launch("update-profile", true, func(context.Context) error {
		user := s.CurrentUser.Get()
		if user == nil {
			return nil
		}
		updated := *user
		updated.Bio = bio
		updated.Avatar = avatar
		if err := s.repo.UpdateUser(&updated); err != nil {
			return err
		}
		s.CurrentUser.Set(&updated)
		return nil
	})
}

// UpdateSettings overwrites the acting user's persisted client settings.
func (s *Session) UpdateSettings(settings json.RawMessage) <-chan struct{} {
	return s.launch("update-settings", true, func(context.Context) error {
		user := s.CurrentUser.Get()
		if user == nil {
			return nil
		}
		updated := *user
		updated.Settings = models.JSON{JSON: datatypes.JSON(settings)}
		if err := s.repo.UpdateUser(&updated); err != nil {
			return err
		}
		s.CurrentUser.Set(&updated)
		return nil
	})
}

// ToggleCheer flips the acting user's cheer on post. It deliberately skips
// the busy flag so several posts can be cheered at once without blocking
// each other's buttons.
func (s *Session) ToggleCheer(post models.Post) <-chan struct{} {
	return s.launch("toggle-cheer", false, func(context.Context) error {
		user := s.CurrentUser.Get()
		if user == nil {
			return nil
		}
		_, err := s.repo.ToggleCheer(user.Username, post.ID)
		return err
	})
}

// WatchCheerCount exposes the live cheer count for one post, for per-post
// rendering.
func (s *Session) WatchCheerCount(ctx context.Context, postID uint) <-chan int64 {
	return s.repo.WatchCheerCount(ctx, postID)
}

// WatchHasCheered exposes whether the acting user has cheered the post.
// Anonymous sessions observe a single false.
func (s *Session) WatchHasCheered(ctx context.Context, postID uint) <-chan bool {
	user := s.CurrentUser.Get()
	if user == nil {
		ch := make(chan bool, 1)
		ch <- false
		close(ch)
		return ch
	}
	return s.repo.WatchHasUserCheered(ctx, user.Username, postID)
}
