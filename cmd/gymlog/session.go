package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/2beens/gymlog/internal/aggregation"
	"github.com/2beens/gymlog/internal/logbook"
	"github.com/2beens/gymlog/internal/workout"
)

const sessionHelp = `commands:
  new                        create an entry
  type <n> lift|run          select the workout type of entry n
  set <n> <field> <value>    set a field (exercise, weight_lbs, total_sets,
                             distance_miles, elapsed_secs, incline_deg)
  submit <n>                 submit entry n
  submitall                  submit every submittable entry
  remove <n>                 remove entry n
  list                       list the entries
  query <name>               run a query in the background, a newer one wins
  latest                     print the latest published query result
  help                       this help
  quit                       wait for running queries and exit
`

var errQuit = errors.New("quit")

func newSessionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Interactive session editing several log entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := newSession(a.newBook(), aggregation.NewRunner(a.newEngine()), cmd.OutOrStdout())
			return s.run(cmd.Context(), cmd.InOrStdin())
		},
	}
}

// session is a line based editor over a logbook. Entries are addressed by
// their 1-based position in the collection.
type session struct {
	book   *logbook.Book
	runner *aggregation.Runner

	outMu sync.Mutex
	out   io.Writer

	queries sync.WaitGroup
}

func newSession(book *logbook.Book, runner *aggregation.Runner, out io.Writer) *session {
	return &session{
		book:   book,
		runner: runner,
		out:    out,
	}
}

func (s *session) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func (s *session) run(ctx context.Context, in io.Reader) error {
	defer s.queries.Wait()

	scanner := bufio.NewScanner(in)
	for {
		s.printf("> ")
		if !scanner.Scan() {
			s.printf("\n")
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := s.exec(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			s.printf("error: %s\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *session) exec(ctx context.Context, line string) error {
	args := strings.Fields(line)
	cmd, args := args[0], args[1:]

	switch cmd {
	case "new":
		s.book.Create()
		s.printf("entry #%d created\n", s.book.Snapshot().Len())
		return nil
	case "type":
		return s.selectType(args)
	case "set":
		return s.setField(args)
	case "submit":
		return s.submit(ctx, args)
	case "submitall":
		for _, entry := range s.book.SubmitAll(ctx) {
			s.printEntryOutcome(entry)
		}
		return nil
	case "remove":
		id, err := s.entryID(args)
		if err != nil {
			return err
		}
		return s.book.Remove(id)
	case "list":
		s.list()
		return nil
	case "query":
		return s.query(ctx, args)
	case "latest":
		if result, ok := s.runner.Latest(); ok {
			s.printf("%s\n", result)
		} else {
			s.printf("no query result yet\n")
		}
		return nil
	case "help":
		s.printf("%s", sessionHelp)
		return nil
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command: %s (try help)", cmd)
	}
}

func (s *session) entryID(args []string) (uuid.UUID, error) {
	if len(args) == 0 {
		return uuid.Nil, errors.New("missing entry number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid entry number: %s", args[0])
	}
	entry, ok := s.book.Snapshot().At(n - 1)
	if !ok {
		return uuid.Nil, fmt.Errorf("no entry #%d", n)
	}
	return entry.ID(), nil
}

func (s *session) selectType(args []string) error {
	id, err := s.entryID(args)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return errors.New("usage: type <n> lift|run")
	}
	kind, err := workout.ParseKind(args[1])
	if err != nil {
		return err
	}
	_, err = s.book.Update(id, logbook.SelectType(kind))
	return err
}

func (s *session) setField(args []string) error {
	id, err := s.entryID(args)
	if err != nil {
		return err
	}
	if len(args) < 3 {
		return errors.New("usage: set <n> <field> <value>")
	}
	// exercise names may contain spaces
	value := strings.Join(args[2:], " ")
	_, err = s.book.Update(id, trySetField(logbook.Field(args[1]), value))
	return err
}

func (s *session) submit(ctx context.Context, args []string) error {
	id, err := s.entryID(args)
	if err != nil {
		return err
	}
	entry, err := s.book.Submit(ctx, id)
	if err != nil {
		return err
	}
	s.printEntryOutcome(entry)
	return nil
}

func (s *session) printEntryOutcome(entry logbook.Entry) {
	switch entry.State() {
	case logbook.StateSubmitted:
		s.printf("[%s] submitted as %s@%d\n", shortID(entry.ID()), entry.Kind(), entry.SubmittedTimestamp())
	case logbook.StateFailed:
		s.printf("[%s] %s (%s)\n", shortID(entry.ID()), entry.Message(), entry.Err())
	default:
		s.printf("[%s] %s\n", shortID(entry.ID()), entry.State())
	}
}

func (s *session) list() {
	entries := s.book.Snapshot().Entries()
	if len(entries) == 0 {
		s.printf("no entries\n")
		return
	}
	for i, entry := range entries {
		s.printf("#%d [%s] %s\n", i+1, shortID(entry.ID()), describeEntry(entry))
	}
}

func describeEntry(entry logbook.Entry) string {
	var fields string
	switch entry.Kind() {
	case workout.KindLift:
		fields = fmt.Sprintf(" exercise=%q weight_lbs=%v total_sets=%d",
			entry.Exercise(), entry.WeightLbs(), entry.TotalSets())
	case workout.KindRun:
		fields = fmt.Sprintf(" distance_miles=%v elapsed_secs=%v incline_deg=%v",
			entry.DistanceMiles(), entry.ElapsedSecs(), entry.InclineDeg())
	}

	desc := entry.State().String() + fields
	if msg := entry.Message(); msg != "" {
		desc += " - " + msg
	}
	return desc
}

func (s *session) query(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: query <name>")
	}
	query, err := aggregation.ParseQuery(args[0])
	if err != nil {
		return err
	}

	s.queries.Add(1)
	go func() {
		defer s.queries.Done()
		result, published := s.runner.Run(ctx, query)
		if published {
			s.printf("%s\n", result)
		}
	}()
	return nil
}
