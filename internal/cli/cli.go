package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"

	"github.com/tartampluch/go-addressbook/internal/book"
	"github.com/tartampluch/go-addressbook/internal/config"
	"github.com/tartampluch/go-addressbook/internal/exchange"
	"github.com/tartampluch/go-addressbook/internal/server"
)

// App is the interactive command loop. It owns the Book for the lifetime of
// the process and translates every outcome, including validation failures
// bubbling up from the core, into localized user-facing text. The core never
// prints and never crosses this boundary with raw errors.
type App struct {
	Book    *book.Book
	Clock   book.Clock
	Fetcher exchange.VCardFetcher

	// calServer is created lazily by the serve command and publishes
	// rendered calendar snapshots only, never the live Book.
	calServer *server.CalendarServer
	serveAddr string

	in   io.Reader
	out  io.Writer
	lang string

	bundle    *i18n.Bundle
	localizer *i18n.Localizer
}

// NewApp wires the command loop. A nil clock falls back to real time.
func NewApp(b *book.Book, clock book.Clock, fetcher exchange.VCardFetcher, lang string, in io.Reader, out io.Writer) *App {
	if clock == nil {
		clock = book.RealClock{}
	}
	a := &App{
		Book:    b,
		Clock:   clock,
		Fetcher: fetcher,
		in:      in,
		out:     out,
		lang:    lang,
	}
	a.SetupI18n()
	return a
}

// Run drives the read-dispatch-print loop until the user quits, input ends,
// or the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	fmt.Fprintln(a.out, a.Msg(config.TKeyWelcome))

	scanner := bufio.NewScanner(a.in)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(a.out, a.Msg(config.TKeyPrompt))

		select {
		case <-ctx.Done():
			fmt.Fprintln(a.out)
			fmt.Fprintln(a.out, a.Msg(config.TKeyGoodbye))
			slog.Info(config.MsgLoopStop, config.LogKeyComponent, config.CompCLI)
			return nil

		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(a.out, a.Msg(config.TKeyGoodbye))
				return scanner.Err()
			}
			reply, quit := a.Dispatch(ctx, line)
			if reply != "" {
				fmt.Fprintln(a.out, reply)
			}
			if quit {
				fmt.Fprintln(a.out, a.Msg(config.TKeyGoodbye))
				return nil
			}
		}
	}
}

// Dispatch parses one input line and executes the matching command.
// It returns the reply text (empty for blank input) and whether the loop
// should terminate.
//
// Error translation policy: a *book.ValidationError carries a translation
// key and maps to its localized message; any other handler error maps to the
// generic invalid-input message. Not-found outcomes are regular replies, not
// errors.
func (a *App) Dispatch(ctx context.Context, line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}
	command, args := fields[0], fields[1:]

	slog.Debug(config.MsgCmdDispatch,
		config.LogKeyComponent, config.CompCLI,
		config.LogKeyCommand, command,
	)

	switch command {
	case config.CmdClose, config.CmdExit:
		return "", true
	case config.CmdHello:
		return a.Msg(config.TKeyHowCanIHelp), false
	case config.CmdHelp:
		return a.Msg(config.TKeyHelp), false
	}

	handler, ok := a.handlers()[command]
	if !ok {
		return a.Msg(config.TKeyInvalidCmd), false
	}

	reply, err := handler(ctx, args)
	if err != nil {
		if v, isValidation := book.AsValidation(err); isValidation {
			return a.Msg(v.Key), false
		}
		slog.Warn(config.ErrAppFailed,
			config.LogKeyComponent, config.CompCLI,
			config.LogKeyCommand, command,
			config.LogKeyError, err,
		)
		return a.Msg(config.TKeyInvalidInput), false
	}
	return reply, false
}

// handlerFunc executes one command. A returned error is translated by
// Dispatch; a returned string is already localized.
type handlerFunc func(ctx context.Context, args []string) (string, error)

// errBadArgs marks a wrong argument shape; Dispatch renders it as the
// generic invalid-input message.
var errBadArgs = fmt.Errorf("wrong number of arguments")

func (a *App) handlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		config.CmdAdd:          a.addContact,
		config.CmdChange:       a.changeContact,
		config.CmdPhone:        a.showPhone,
		config.CmdAll:          a.showAll,
		config.CmdAddBirthday:  a.addBirthday,
		config.CmdShowBirthday: a.showBirthday,
		config.CmdBirthdays:    a.birthdays,
		config.CmdDelete:       a.deleteContact,
		config.CmdExport:       a.exportVCard,
		config.CmdImport:       a.importVCard,
		config.CmdAuth:         a.saveAuth,
		config.CmdCalendar:     a.writeCalendar,
		config.CmdServe:        a.serveCalendar,
	}
}

// addContact finds or creates the record, then appends the phone.
// The record is registered before the phone is validated, matching the
// find-or-create-then-add contract: a bad phone still leaves the contact.
func (a *App) addContact(_ context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return "", errBadArgs
	}
	name, phone := args[0], args[1]

	key := config.TKeyContactUpdated
	rec, ok := a.Book.Find(name)
	if !ok {
		newRec, err := book.NewRecord(name)
		if err != nil {
			return "", err
		}
		a.Book.AddRecord(newRec)
		rec = newRec
		key = config.TKeyContactAdded
	}
	if err := rec.AddPhone(phone); err != nil {
		return "", err
	}
	a.republish()
	return a.Msg(key), nil
}

func (a *App) changeContact(_ context.Context, args []string) (string, error) {
	if len(args) < 3 {
		return "", errBadArgs
	}
	name, oldPhone, newPhone := args[0], args[1], args[2]

	rec, ok := a.Book.Find(name)
	if !ok {
		return a.Msg(config.TKeyNoContactPhone), nil
	}
	replaced, err := rec.EditPhone(oldPhone, newPhone)
	if err != nil {
		return "", err
	}
	if !replaced {
		return a.Msg(config.TKeyNoContactPhone), nil
	}
	return a.Msg(config.TKeyPhoneUpdated), nil
}

func (a *App) showPhone(_ context.Context, args []string) (string, error) {
	if len(args) < 1 {
		return "", errBadArgs
	}
	rec, ok := a.Book.Find(args[0])
	if !ok {
		return a.Msg(config.TKeyContactMissing), nil
	}
	phones := make([]string, 0, len(rec.Phones()))
	for _, p := range rec.Phones() {
		phones = append(phones, p.String())
	}
	return a.MsgData(config.TKeyPhonesFor, map[string]any{
		"Name":   rec.Name(),
		"Phones": strings.Join(phones, ", "),
	}), nil
}

func (a *App) showAll(_ context.Context, _ []string) (string, error) {
	if a.Book.Len() == 0 {
		return a.Msg(config.TKeyBookEmpty), nil
	}
	return a.Book.String(), nil
}

func (a *App) addBirthday(_ context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return "", errBadArgs
	}
	name, date := args[0], args[1]

	rec, ok := a.Book.Find(name)
	if !ok {
		return a.Msg(config.TKeyContactMissing), nil
	}
	if err := rec.SetBirthday(date); err != nil {
		return "", err
	}
	a.republish()
	return a.MsgData(config.TKeyBdayAdded, map[string]any{"Name": rec.Name()}), nil
}

func (a *App) showBirthday(_ context.Context, args []string) (string, error) {
	if len(args) < 1 {
		return "", errBadArgs
	}
	rec, ok := a.Book.Find(args[0])
	if !ok {
		return a.Msg(config.TKeyNoContactBday), nil
	}
	bd, ok := rec.Birthday()
	if !ok {
		return a.Msg(config.TKeyNoContactBday), nil
	}
	return a.MsgData(config.TKeyBdayShow, map[string]any{
		"Name": rec.Name(),
		"Date": bd.String(),
	}), nil
}

func (a *App) birthdays(_ context.Context, _ []string) (string, error) {
	names := a.Book.UpcomingBirthdays()
	if len(names) == 0 {
		return a.Msg(config.TKeyNoUpcoming), nil
	}
	return a.MsgData(config.TKeyUpcoming, map[string]any{
		"Names": strings.Join(names, ", "),
	}), nil
}

func (a *App) deleteContact(_ context.Context, args []string) (string, error) {
	if len(args) < 1 {
		return "", errBadArgs
	}
	name := args[0]
	if !a.Book.Delete(name) {
		return a.Msg(config.TKeyContactMissing), nil
	}
	a.republish()
	return a.MsgData(config.TKeyDeleted, map[string]any{"Name": name}), nil
}

func (a *App) exportVCard(_ context.Context, args []string) (string, error) {
	if len(args) < 1 {
		return "", errBadArgs
	}
	path := args[0]

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	count, err := exchange.ExportVCard(f, a.Book)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}
	return a.MsgData(config.TKeyExported, map[string]any{
		"Count": count,
		"Path":  path,
	}), nil
}

func (a *App) importVCard(ctx context.Context, args []string) (string, error) {
	if len(args) < 1 {
		return "", errBadArgs
	}
	source := args[0]
	user := ""
	if len(args) > 1 {
		user = args[1]
	}

	rc, err := exchange.OpenSource(ctx, source, user, a.Fetcher)
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	records, err := exchange.ImportVCard(rc)
	if err != nil {
		return "", err
	}
	for _, rec := range records {
		a.Book.AddRecord(rec)
	}
	a.republish()
	return a.MsgData(config.TKeyImported, map[string]any{"Count": len(records)}), nil
}

func (a *App) saveAuth(_ context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return "", errBadArgs
	}
	user, pass := args[0], args[1]
	if err := exchange.SavePassword(user, pass); err != nil {
		return "", err
	}
	return a.MsgData(config.TKeyAuthSaved, map[string]any{"User": user}), nil
}

func (a *App) writeCalendar(_ context.Context, args []string) (string, error) {
	if len(args) < 1 {
		return "", errBadArgs
	}
	path := args[0]

	data, err := a.buildCalendar()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, config.FilePermUserRWGroupR); err != nil {
		return "", err
	}
	return a.MsgData(config.TKeyCalWritten, map[string]any{"Path": path}), nil
}

// serveCalendar starts the localhost calendar endpoint. The server keeps
// running until the process context is cancelled; repeated serve commands
// while it runs just report the address again.
func (a *App) serveCalendar(ctx context.Context, args []string) (string, error) {
	if a.calServer != nil {
		return a.MsgData(config.TKeyServing, map[string]any{"Addr": a.serveAddr}), nil
	}
	if len(args) < 1 {
		return "", errBadArgs
	}
	port := args[0]
	if err := server.ValidatePort(port); err != nil {
		return "", err
	}

	data, err := a.buildCalendar()
	if err != nil {
		return "", err
	}

	srv := server.NewCalendarServer(port)
	srv.Publish(data)
	go func() {
		if err := srv.Start(ctx); err != nil {
			slog.Error(config.ErrServerStartup,
				config.LogKeyComponent, config.CompCLI,
				config.LogKeyError, err,
			)
		}
	}()

	a.calServer = srv
	a.serveAddr = config.LocalhostBindAddr + config.AddrSeparator + port
	return a.MsgData(config.TKeyServing, map[string]any{"Addr": a.serveAddr}), nil
}

// buildCalendar renders the book's birthdays with localized summaries.
func (a *App) buildCalendar() ([]byte, error) {
	builder := &exchange.CalendarBuilder{
		Clock: a.Clock,
		FormatSummary: func(name string) string {
			return a.MsgData(config.TKeyEvtSummary, map[string]any{"Name": name})
		},
	}
	return builder.Build(a.Book)
}

// republish pushes a fresh calendar snapshot to the server after a mutation.
// A no-op while the serve command has not been used.
func (a *App) republish() {
	if a.calServer == nil {
		return
	}
	data, err := a.buildCalendar()
	if err != nil {
		slog.Error(config.ErrICalEncode,
			config.LogKeyComponent, config.CompCLI,
			config.LogKeyError, err,
		)
		return
	}
	a.calServer.Publish(data)
}
