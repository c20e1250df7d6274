package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/kamusi/apps/api/echo"
	"github.com/trezcool/kamusi/core"
	"github.com/trezcool/kamusi/core/card"
	"github.com/trezcool/kamusi/core/course"
	"github.com/trezcool/kamusi/services/sheets"
	"github.com/trezcool/kamusi/storage/database"
	sqlxrepos "github.com/trezcool/kamusi/storage/database/sqlx"
	"github.com/trezcool/kamusi/testutil"
)

var (
	courseRepo course.Repository
	cardRepo   card.Repository

	owner = core.Identity{UserID: "u-owner", Username: "mwalimu", Email: "mwalimu@test.cd"}
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & repos
	conf := core.NewTestConfig()
	db := testutil.PrepareDB(t)
	courseRepo = sqlxrepos.NewCourseRepository(db)
	cardRepo = sqlxrepos.NewCardRepository(db)
	tx := database.NewTransactor(db)

	// start CLI
	out := new(bytes.Buffer)
	return &commandLine{
		conf:      conf,
		logger:    testutil.NopLogger{},
		db:        db,
		courseSvc: course.NewService(courseRepo, tx, nil, conf),
		cardSvc:   card.NewService(cardRepo, tx),
		out:       out,
	}, out
}

func setupLesson(t *testing.T) course.Lesson {
	c := testutil.CreateCourse(t, courseRepo, owner, "Swahili 101", "swahili-101", nil)
	ch := testutil.CreateChapter(t, courseRepo, c.ID, "Greetings", "greetings", 0)
	return testutil.CreateLesson(t, courseRepo, ch, "Hello", 0)
}

func writeWorkbook(t *testing.T, pairs ...sheets.Pair) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cards.xlsx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	require.NoError(t, sheets.WritePairs(f, "", pairs))
	return path
}

func lessonCards(t *testing.T, lessonID string) []string {
	t.Helper()

	cards, err := cardRepo.QueryCardsByLesson(context.Background(), lessonID)
	require.NoError(t, err)
	lines := make([]string, 0, len(cards))
	for _, c := range cards {
		lines = append(lines, c.Term+" = "+c.Translation)
	}
	return lines
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()

	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_root(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol" for "admin"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(db *sqlx.DB, logger core.Logger, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	t.Cleanup(func() { gooseRunFunc = database.RunMigrations })

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_importCards(t *testing.T) {
	path := func(t *testing.T) string {
		return writeWorkbook(t,
			sheets.Pair{Term: "Jambo", Translation: "hi"},
			sheets.Pair{Term: "kwaheri", Translation: "goodbye"},
		)
	}

	tests := []struct {
		name      string
		args      func(lessonID, file string) []string
		wantErr   error
		wantCards []string
		wantOut   []string
	}{
		{
			name:      "missing flags",
			args:      func(lessonID, file string) []string { return []string{"import-cards", "--lesson", lessonID} },
			wantErr:   errHelp,
			wantCards: []string{"jambo = hello", "asante = thanks"},
		},
		{
			name: "dry run",
			args: func(lessonID, file string) []string {
				return []string{"import-cards", "-l", lessonID, "-f", file, "--dry-run"}
			},
			wantCards: []string{"jambo = hello", "asante = thanks"},
			wantOut:   []string{"--- lesson\n", "+++ import\n", "-jambo = hello\n", "+Jambo = hi\n", "+kwaheri = goodbye\n"},
		},
		{
			name:      "merge",
			args:      func(lessonID, file string) []string { return []string{"import-cards", "-l", lessonID, "-f", file} },
			wantCards: []string{"Jambo = hi", "asante = thanks", "kwaheri = goodbye"},
			wantOut:   []string{"3 cards saved, 0 deleted\n"},
		},
		{
			name: "replace",
			args: func(lessonID, file string) []string {
				return []string{"import-cards", "-l", lessonID, "-f", file, "--replace"}
			},
			wantCards: []string{"Jambo = hi", "kwaheri = goodbye"},
			wantOut:   []string{"2 cards saved, 1 deleted\n"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, out := setup(t)
			l := setupLesson(t)
			testutil.CreateCards(t, cardRepo, l.ID, [2]string{"jambo", "hello"}, [2]string{"asante", "thanks"})

			err := cli.run(append([]string{"admin"}, tt.args(l.ID, path(t))...))
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCards, lessonCards(t, l.ID))
			for _, s := range tt.wantOut {
				assert.Contains(t, out.String(), s)
			}
		})
	}

	t.Run("repeated new term", func(t *testing.T) {
		cli, out := setup(t)
		l := setupLesson(t)
		testutil.CreateCards(t, cardRepo, l.ID, [2]string{"jambo", "hello"})
		file := writeWorkbook(t,
			sheets.Pair{Term: "simba", Translation: "lion"},
			sheets.Pair{Term: "Simba", Translation: "the lion"},
			sheets.Pair{Term: "JAMBO", Translation: "hi"},
		)

		require.NoError(t, cli.run([]string{"admin", "import-cards", "-l", l.ID, "-f", file}))
		assert.Equal(t, []string{"JAMBO = hi", "Simba = the lion"}, lessonCards(t, l.ID))
		assert.Equal(t, "2 cards saved, 0 deleted\n", out.String())
	})

	t.Run("unknown lesson", func(t *testing.T) {
		cli, _ := setup(t)
		err := cli.run([]string{"admin", "import-cards", "-l", "lol", "-f", path(t)})
		assert.True(t, core.IsNotFound(err), "got %v", err)
	})

	t.Run("unknown sheet", func(t *testing.T) {
		cli, _ := setup(t)
		l := setupLesson(t)
		err := cli.run([]string{"admin", "import-cards", "-l", l.ID, "-f", path(t), "--sheet", "lol"})
		assert.ErrorIs(t, err, sheets.ErrSheetNotFound)
	})
}

func Test_commandLine_exportCards(t *testing.T) {
	cli, out := setup(t)
	l := setupLesson(t)
	testutil.CreateCards(t, cardRepo, l.ID, [2]string{"jambo", "hello"}, [2]string{"asante", "thanks"})

	t.Run("yaml", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "export-cards", "-l", l.ID}))
		assert.Contains(t, out.String(), "title: Hello\n")
		assert.Contains(t, out.String(), "  - term: jambo\n    translation: hello\n  - term: asante\n    translation: thanks\n")
	})

	t.Run("xlsx", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.xlsx")
		require.NoError(t, cli.run([]string{"admin", "export-cards", "-l", l.ID, "--format", "xlsx", "-o", path}))

		f, err := os.Open(path)
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		pairs, err := sheets.ReadPairs(f, sheets.Options{Header: true})
		require.NoError(t, err)
		assert.Equal(t, []sheets.Pair{{Term: "jambo", Translation: "hello"}, {Term: "asante", Translation: "thanks"}}, pairs)
	})

	t.Run("unknown format", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")
		err := cli.run([]string{"admin", "export-cards", "-l", l.ID, "--format", "csv", "-o", path})
		if assert.Error(t, err) {
			assert.Equal(t, `unknown format "csv" (want yaml or xlsx)`, err.Error())
		}
		assert.NoFileExists(t, path)
	})
}

type closer struct{ err error }

func (c closer) Close() error { return c.err }

func Test_closeOutput(t *testing.T) {
	errWrite := errors.New("write failed")
	errClose := errors.New("disk full")

	tests := []struct {
		name     string
		writeErr error
		closeErr error
		want     error
	}{
		{name: "ok"},
		{name: "close error reported", closeErr: errClose, want: errClose},
		{name: "write error wins", writeErr: errWrite, closeErr: errClose, want: errWrite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.writeErr
			closeOutput(closer{tt.closeErr}, &err)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func Test_commandLine_describeLesson(t *testing.T) {
	cli, out := setup(t)
	l := setupLesson(t)

	file := filepath.Join(t.TempDir(), "desc.html")
	require.NoError(t, os.WriteFile(file, []byte("<p>Habari</p><script>alert(1)</script>"), 0o600))

	tests := []struct {
		name     string
		args     []string
		wantErr  error
		wantDesc string
	}{
		{name: "missing flags", args: []string{"describe-lesson", "-l", l.ID, "-f", file}, wantErr: errHelp},
		{name: "not the owner", args: []string{"describe-lesson", "-l", l.ID, "--owner", "u-stranger", "-f", file}, wantErr: core.ErrPermissionDenied},
		{name: "owner", args: []string{"describe-lesson", "-l", l.ID, "--owner", owner.UserID, "-f", file}, wantDesc: "<p>Habari</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(append([]string{"admin"}, tt.args...))

			got, gerr := courseRepo.GetLessonByID(context.Background(), l.ID)
			require.NoError(t, gerr)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.Empty(t, got.Description)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDesc, got.Description)
			assert.Equal(t, "Saved!\n"+tt.wantDesc+"\n", out.String())
		})
	}
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "missing flags", args: []string{"token", "-u", "u-1"}, wantErr: errHelp},
		{name: "token", args: []string{"token", "-u", "u-1", "--username", "awe", "--email", "awe@test.cd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(append([]string{"admin"}, tt.args...))
			tt.check(t, err)
			if err != nil {
				return
			}

			claims := new(echoapi.Claims)
			_, err = jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
				return []byte(cli.conf.Identity.SigningKey), nil
			})
			require.NoError(t, err)
			assert.Equal(t, core.Identity{UserID: "u-1", Username: "awe", Email: "awe@test.cd"}, claims.Identity())
		})
	}
}
