package graph

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/needley/internal/auth"
	"github.com/sakif/needley/internal/repository/sqlite"
	"github.com/sakif/needley/internal/service"
	"github.com/sakif/needley/internal/sessionstore"
)

type harness struct {
	schema   *graphql.Schema
	sessions *auth.SessionManager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	sessions := auth.NewSessionManager(tokens, sessionstore.NewMemory())
	passwords := auth.NewPasswordServiceForTest(4)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewResolver(
		service.NewAccountService(db.Users(), passwords, sessions, logger),
		service.NewAuthService(db.Users(), passwords, sessions, logger),
		service.NewArticleService(db.Articles(), logger),
		logger,
	)
	schema, err := NewSchema(r, 12)
	require.NoError(t, err)
	return &harness{schema: schema, sessions: sessions}
}

// exec runs one operation as the given session. A nil session runs
// anonymously.
func (h *harness) exec(t *testing.T, s *auth.Session, query string, vars map[string]interface{}) *graphql.Response {
	t.Helper()
	if s == nil {
		s = auth.NewSession(nil)
	}
	ctx := auth.WithSession(context.Background(), s)
	return h.schema.Exec(ctx, query, "", vars)
}

// mustExec runs the operation and decodes data into v, failing on errors.
func (h *harness) mustExec(t *testing.T, s *auth.Session, query string, vars map[string]interface{}, v interface{}) {
	t.Helper()
	resp := h.exec(t, s, query, vars)
	require.Empty(t, resp.Errors, "unexpected errors: %v", resp.Errors)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

const createUserMutation = `
mutation($username: String!, $email: String!, $password: String!, $nickname: String!, $avatar: String) {
  createUser(username: $username, email: $email, password: $password, nickname: $nickname, avatar: $avatar) {
    user { id username profile { id nickname avatar } }
  }
}`

type userData struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	LastLogin *string `json:"lastLogin"`
	Profile   struct {
		ID       string  `json:"id"`
		Nickname string  `json:"nickname"`
		Avatar   *string `json:"avatar"`
	} `json:"profile"`
}

// signUp registers a user through the API and returns the session it left
// logged in.
func (h *harness) signUp(t *testing.T, username, nickname string) (*auth.Session, userData) {
	t.Helper()
	s := auth.NewSession(nil)
	var out struct {
		CreateUser struct {
			User userData `json:"user"`
		} `json:"createUser"`
	}
	h.mustExec(t, s, createUserMutation, map[string]interface{}{
		"username": username,
		"email":    username + "@example.com",
		"password": "pw",
		"nickname": nickname,
	}, &out)
	return s, out.CreateUser.User
}

func errorCode(t *testing.T, resp *graphql.Response) string {
	t.Helper()
	require.Len(t, resp.Errors, 1)
	code, _ := resp.Errors[0].Extensions["code"].(string)
	return code
}

func TestNewSchema_ParsesAndBinds(t *testing.T) {
	h := newHarness(t)
	assert.NotNil(t, h.schema)
	assert.Contains(t, SDL(), "type Query")
}

func TestCreateUser_StartsSession(t *testing.T) {
	h := newHarness(t)
	s, user := h.signUp(t, "alice", "Alice")

	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice", user.Profile.Nickname)
	assert.Nil(t, user.Profile.Avatar)

	uid, ok := s.UserID()
	require.True(t, ok)
	_, pk, err := decodeID(graphql.ID(user.ID), "id")
	require.NoError(t, err)
	assert.Equal(t, pk, uid)
	assert.True(t, s.PendingCookie().Set)
}

// Register, log in as the new user and post an article.
func TestScenario_RegisterLoginPost(t *testing.T) {
	h := newHarness(t)

	var created struct {
		CreateUser struct {
			User userData `json:"user"`
		} `json:"createUser"`
	}
	h.mustExec(t, nil, createUserMutation, map[string]interface{}{
		"username": "alice",
		"email":    "alice@x.com",
		"password": "pw",
		"nickname": "Alice",
	}, &created)

	s := auth.NewSession(nil)
	var login struct {
		Login struct {
			Me userData `json:"me"`
		} `json:"login"`
	}
	h.mustExec(t, s, `mutation { login(username: "alice", password: "pw") { me { id username lastLogin } } }`, nil, &login)
	assert.Equal(t, created.CreateUser.User.ID, login.Login.Me.ID)
	assert.NotNil(t, login.Login.Me.LastLogin)

	var posted struct {
		PostArticle struct {
			Article struct {
				ID      string `json:"id"`
				Title   string `json:"title"`
				Slug    string `json:"slug"`
				Content string `json:"content"`
				Author  struct {
					Username string `json:"username"`
				} `json:"author"`
			} `json:"article"`
		} `json:"postArticle"`
	}
	h.mustExec(t, s, `mutation { postArticle(title: "Hello", content: "World") {
		article { id title slug content author { username } } } }`, nil, &posted)
	a := posted.PostArticle.Article
	assert.Equal(t, "Hello", a.Title)
	assert.Equal(t, "hello", a.Slug)
	assert.Equal(t, "World", a.Content)
	assert.Equal(t, "alice", a.Author.Username)

	var me struct {
		Me struct {
			Articles struct {
				TotalCount int `json:"totalCount"`
				Edges      []struct {
					Node struct {
						ID string `json:"id"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"articles"`
		} `json:"me"`
	}
	h.mustExec(t, s, `{ me { articles { totalCount edges { node { id } } } } }`, nil, &me)
	assert.Equal(t, 1, me.Me.Articles.TotalCount)
	require.Len(t, me.Me.Articles.Edges, 1)
	assert.Equal(t, a.ID, me.Me.Articles.Edges[0].Node.ID)
}

func TestMe_AnonymousIsNull(t *testing.T) {
	h := newHarness(t)
	resp := h.exec(t, nil, `{ me { id } }`, nil)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"me":null}`, string(resp.Data))
}

func TestLogout_ClearsSession(t *testing.T) {
	h := newHarness(t)
	s, _ := h.signUp(t, "alice", "Alice")

	var out struct {
		Logout struct {
			Ok bool `json:"ok"`
		} `json:"logout"`
	}
	h.mustExec(t, s, `mutation { logout { ok } }`, nil, &out)
	assert.True(t, out.Logout.Ok)
	assert.True(t, s.PendingCookie().Clear)

	resp := h.exec(t, s, `{ me { id } }`, nil)
	assert.JSONEq(t, `{"me":null}`, string(resp.Data))
}

func TestPostArticle_RequiresLogin(t *testing.T) {
	h := newHarness(t)
	resp := h.exec(t, nil, `mutation { postArticle(title: "Hello", content: "World") { article { id } } }`, nil)
	assert.Equal(t, CodeNotAuthenticated, errorCode(t, resp))
	assert.Equal(t, service.NotAuthenticatedPostMessage, resp.Errors[0].Message)
}

func TestNode_ResolvesEveryKind(t *testing.T) {
	h := newHarness(t)
	s, user := h.signUp(t, "alice", "Alice")

	var posted struct {
		PostArticle struct {
			Article struct {
				ID string `json:"id"`
			} `json:"article"`
		} `json:"postArticle"`
	}
	h.mustExec(t, s, `mutation { postArticle(title: "Hi", content: "there") { article { id } } }`, nil, &posted)

	query := `query($id: ID!) { node(id: $id) { __typename id } }`
	for typename, id := range map[string]string{
		"User":    user.ID,
		"Profile": user.Profile.ID,
		"Article": posted.PostArticle.Article.ID,
	} {
		var out struct {
			Node struct {
				Typename string `json:"__typename"`
				ID       string `json:"id"`
			} `json:"node"`
		}
		h.mustExec(t, nil, query, map[string]interface{}{"id": id}, &out)
		assert.Equal(t, typename, out.Node.Typename)
		assert.Equal(t, id, out.Node.ID)
	}
}

func TestUser_WrongKindIsNotFound(t *testing.T) {
	h := newHarness(t)
	_, user := h.signUp(t, "alice", "Alice")

	resp := h.exec(t, nil, `query($id: ID!) { article(id: $id) { id } }`, map[string]interface{}{"id": user.ID})
	assert.Equal(t, CodeNotFound, errorCode(t, resp))
}

func TestAllUsers_NicknameFilterAndPaging(t *testing.T) {
	h := newHarness(t)
	for _, u := range []struct{ username, nickname string }{
		{"u1", "Tom"}, {"u2", "Jerry"}, {"u3", "tomato"}, {"u4", "Atom"},
	} {
		h.signUp(t, u.username, u.nickname)
	}

	type connection struct {
		AllUsers struct {
			TotalCount int `json:"totalCount"`
			PageInfo   struct {
				HasNextPage     bool   `json:"hasNextPage"`
				HasPreviousPage bool   `json:"hasPreviousPage"`
				EndCursor       string `json:"endCursor"`
				StartCursor     string `json:"startCursor"`
			} `json:"pageInfo"`
			Edges []struct {
				Node struct {
					Username string `json:"username"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"allUsers"`
	}
	names := func(c connection) []string {
		var out []string
		for _, e := range c.AllUsers.Edges {
			out = append(out, e.Node.Username)
		}
		return out
	}
	query := `query($first: Int, $after: String, $last: Int, $before: String) {
	  allUsers(nickname_icontains: "TOM", first: $first, after: $after, last: $last, before: $before) {
	    totalCount
	    pageInfo { hasNextPage hasPreviousPage startCursor endCursor }
	    edges { node { username } }
	  }
	}`

	var page1 connection
	h.mustExec(t, nil, query, map[string]interface{}{"first": 2}, &page1)
	assert.Equal(t, 3, page1.AllUsers.TotalCount)
	assert.Equal(t, []string{"u1", "u3"}, names(page1))
	assert.True(t, page1.AllUsers.PageInfo.HasNextPage)

	var page2 connection
	h.mustExec(t, nil, query, map[string]interface{}{"first": 2, "after": page1.AllUsers.PageInfo.EndCursor}, &page2)
	assert.Equal(t, []string{"u4"}, names(page2))
	assert.False(t, page2.AllUsers.PageInfo.HasNextPage)
	assert.Equal(t, 3, page2.AllUsers.TotalCount)

	var back connection
	h.mustExec(t, nil, query, map[string]interface{}{"last": 1, "before": page2.AllUsers.PageInfo.StartCursor}, &back)
	assert.Equal(t, []string{"u3"}, names(back))
	assert.True(t, back.AllUsers.PageInfo.HasPreviousPage)

	var empty connection
	h.mustExec(t, nil, query, map[string]interface{}{"first": 0}, &empty)
	assert.Empty(t, empty.AllUsers.Edges)
	assert.Equal(t, 3, empty.AllUsers.TotalCount)
	assert.True(t, empty.AllUsers.PageInfo.HasNextPage)
}

func TestAllArticles_FilterByAuthorAndTime(t *testing.T) {
	h := newHarness(t)
	alice, aliceUser := h.signUp(t, "alice", "Alice")
	bob, _ := h.signUp(t, "bob", "Bob")

	post := func(s *auth.Session, title string) {
		var out map[string]interface{}
		h.mustExec(t, s, `mutation($t: String!) { postArticle(title: $t, content: "body") { article { id } } }`,
			map[string]interface{}{"t": title}, &out)
	}
	post(alice, "First")
	post(bob, "Second")
	post(alice, "Third")

	var out struct {
		AllArticles struct {
			TotalCount int `json:"totalCount"`
			Edges      []struct {
				Node struct {
					Title string `json:"title"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"allArticles"`
	}
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	h.mustExec(t, nil, `query($author: ID, $before: Time) {
	  allArticles(author: $author, createdAt_lt: $before) { totalCount edges { node { title } } }
	}`, map[string]interface{}{"author": aliceUser.ID, "before": future}, &out)

	assert.Equal(t, 2, out.AllArticles.TotalCount)
	require.Len(t, out.AllArticles.Edges, 2)
	assert.Equal(t, "First", out.AllArticles.Edges[0].Node.Title)
	assert.Equal(t, "Third", out.AllArticles.Edges[1].Node.Title)
}

func TestAllUsers_NegativeFirstIsValidationError(t *testing.T) {
	h := newHarness(t)
	resp := h.exec(t, nil, `{ allUsers(first: -1) { totalCount } }`, nil)
	assert.Equal(t, CodeValidation, errorCode(t, resp))
	assert.Equal(t, "first", resp.Errors[0].Extensions["field"])
}

func TestAllUsers_ForeignCursorRejected(t *testing.T) {
	h := newHarness(t)
	cursor := encodeCursor(kindArticle, "abc")
	resp := h.exec(t, nil, `query($c: String) { allUsers(after: $c) { totalCount } }`, map[string]interface{}{"c": cursor})
	assert.Equal(t, CodeValidation, errorCode(t, resp))
}

func TestMaxDepth_RejectsDeepQueries(t *testing.T) {
	h := newHarness(t)
	// article -> author -> articles -> edges -> node -> author ... past 12 levels.
	query := `{ allArticles { edges { node { author { articles { edges { node { author {
	  articles { edges { node { author { username } } } } } } } } } } } } }`
	resp := h.exec(t, nil, query, nil)
	require.NotEmpty(t, resp.Errors)
}
