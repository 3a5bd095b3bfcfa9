package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	authservice "otp-session-auth/internal/auth/service"
	"otp-session-auth/internal/session"
	"otp-session-auth/internal/session/domain"
	"otp-session-auth/internal/sessiontimer"
)

var errQuit = errors.New("quit")

// flow drives the interactive sign-in: email, code, then the session view.
type flow struct {
	auth      *authservice.AuthService
	lines     <-chan string
	out       io.Writer
	now       func() time.Time
	timerOpts []sessiontimer.Option
}

func newFlow(auth *authservice.AuthService, in io.Reader, out io.Writer, timerOpts ...sessiontimer.Option) *flow {
	return &flow{
		auth:      auth,
		lines:     readLines(in),
		out:       out,
		now:       time.Now,
		timerOpts: timerOpts,
	}
}

// readLines feeds input lines to a channel so prompts can also watch ctx. The
// channel is closed at EOF.
func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}

func (f *flow) ask(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(f.out, prompt)
	select {
	case <-ctx.Done():
		return "", errQuit
	case line, ok := <-f.lines:
		if !ok {
			return "", errQuit
		}
		return strings.TrimSpace(line), nil
	}
}

func (f *flow) run(ctx context.Context, email string) error {
	if sess := f.auth.Resume(ctx, session.DefaultKey); sess != nil {
		fmt.Fprintf(f.out, "Welcome back, %s.\n", sess.Email)
		return f.sessionView(ctx, sess)
	}
	sess, err := f.signIn(ctx, email)
	if errors.Is(err, errQuit) {
		return nil
	}
	if err != nil {
		return err
	}
	return f.sessionView(ctx, sess)
}

func (f *flow) signIn(ctx context.Context, email string) (*domain.Session, error) {
	for {
		var err error
		if email == "" {
			if email, err = f.ask(ctx, "Email: "); err != nil {
				return nil, err
			}
		}
		req, err := f.auth.RequestCode(ctx, email)
		switch {
		case errors.Is(err, authservice.ErrInvalidInput):
			fmt.Fprintln(f.out, "Please enter a valid email address.")
			email = ""
			continue
		case errors.Is(err, authservice.ErrEmailNotAllowed):
			fmt.Fprintf(f.out, "This email cannot sign in: %v\n", err)
			email = ""
			continue
		case errors.Is(err, authservice.ErrBlocked):
			fmt.Fprintln(f.out, "Too many failed attempts. Type r to request a new code.")
		case err != nil:
			return nil, err
		default:
			f.showCode(req)
		}
		return f.enterCode(ctx, email)
	}
}

func (f *flow) showCode(req *authservice.CodeRequest) {
	secs := int(req.ExpiresAt.Sub(f.now()).Round(time.Second) / time.Second)
	fmt.Fprintf(f.out, "Mock email to %s: your code is %s (valid for %ds).\n", req.Email, req.Code, secs)
}

func (f *flow) enterCode(ctx context.Context, email string) (*domain.Session, error) {
	for {
		in, err := f.ask(ctx, "Code (r to resend, q to quit): ")
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(in) {
		case "q", "quit":
			return nil, errQuit
		case "r", "resend":
			req, err := f.auth.ResendCode(ctx, email)
			if err != nil {
				return nil, err
			}
			f.showCode(req)
			continue
		}

		v, err := f.auth.VerifyCode(ctx, email, in)
		if errors.Is(err, authservice.ErrInvalidInput) {
			fmt.Fprintln(f.out, "Enter the 6-digit code.")
			continue
		}
		if err != nil {
			return nil, err
		}
		fmt.Fprintln(f.out, v.Result.Message())
		if v.Result.Success {
			return v.Session, nil
		}
	}
}

func (f *flow) render(snap sessiontimer.Snapshot) {
	fmt.Fprintf(f.out, "\rSession duration: %s ", snap.FormattedDuration)
}

// sessionView shows the elapsed time until the user logs out or leaves. Leaving
// keeps the session saved for the next run.
func (f *flow) sessionView(ctx context.Context, sess *domain.Session) error {
	timer := sessiontimer.Start(ctx, sess.LoginTimestamp, f.timerOpts...)
	defer timer.Stop()

	fmt.Fprintf(f.out, "Signed in as %s at %s. Type logout to sign out or q to leave.\n",
		sess.Email, sess.LoginTimestamp.Local().Format(time.DateTime))
	f.render(<-timer.Updates())
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-timer.Updates():
			if !ok {
				return nil
			}
			f.render(snap)
		case line, ok := <-f.lines:
			if !ok {
				fmt.Fprintln(f.out)
				return nil
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "logout", "l":
				st := f.auth.Logout(ctx, session.DefaultKey, sess)
				fmt.Fprintf(f.out, "\nSigned out after %s.\n", st.FormattedDuration)
				return nil
			case "q", "quit":
				fmt.Fprintln(f.out)
				return nil
			}
		}
	}
}
