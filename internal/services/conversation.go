package services

import (
	"fmt"
	"strconv"
	"strings"
)

// Role identifies who the engine believes it is talking to.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleWaiter   Role = "waiter"
)

// ConversationState is the position of a party inside a conversation flow.
type ConversationState string

const (
	StateInitial                 ConversationState = "initial"
	StateAwaitingWaiterPassword  ConversationState = "awaiting_waiter_password"
	StateAwaitingFreeTableNumber ConversationState = "awaiting_free_table_number"
	StateAwaitingNamePeople      ConversationState = "awaiting_name_people"
)

// Command is a domain action the conversation engine asks the caller to
// apply to the store. The engine itself never touches storage.
type Command interface {
	commandName() string
}

// EnqueueParty asks the caller to put a validated party on the waitlist.
type EnqueueParty struct {
	Name      string
	PartySize int
}

func (EnqueueParty) commandName() string { return "enqueue_party" }

// FreeTable asks the caller to mark a table free.
type FreeTable struct {
	Number string
}

func (FreeTable) commandName() string { return "free_table" }

// Transition is the full outcome of feeding one text message to the engine:
// the session after the exchange, replies for the sender in order, and the
// domain commands to apply.
type Transition struct {
	Session  *Session
	Replies  []string
	Commands []Command
}

// TableDirectory is the read-only view of the table set the engine needs to
// validate waiter and customer input.
type TableDirectory interface {
	TableExists(number string) (bool, error)
	MaxTableCapacity() (int, error)
}

// ConversationEngine interprets inbound text against a session's (role,
// state) and produces a Transition. It performs no I/O besides directory
// lookups, so it is testable as (session, text) -> (session', replies,
// commands).
type ConversationEngine struct {
	directory      TableDirectory
	waiterPassword string
}

// NewConversationEngine creates a new conversation engine
func NewConversationEngine(directory TableDirectory, waiterPassword string) *ConversationEngine {
	return &ConversationEngine{
		directory:      directory,
		waiterPassword: waiterPassword,
	}
}

// Conversation prompts and errors. The seating notification lives here too
// so every customer-facing string is in one place.
const (
	MsgWaiterPasswordPrompt = "Please enter the waiter password."
	MsgWaiterAuthenticated  = "Waiter authenticated. Please enter the table number that is now free (e.g., T4 or just 4)."
	MsgIncorrectPassword    = "Incorrect password. Please try again or say 'hi' to start as a customer."
	MsgInvalidTableFormat   = "Invalid table number format. Please enter just the number, e.g., '4' or 'Table 4'."
	MsgNamePeoplePrompt     = "Enter your name and how many people are there (e.g., John, 5)"
	MsgNamePeopleFormat     = "Please provide name and number in format: Name, Number (e.g., John, 5)"
	MsgPositivePeople       = "Number of people must be a positive integer. Please try again."
	MsgHelp                 = "Please say 'hi' to start as a customer or 'waiter' to access waiter functions."
	MsgTextOnly             = "I can only process text messages. Please say 'hi' to start."
	MsgGenericFailure       = "Sorry, something went wrong. Please try again."
)

func msgTableFreed(number string) string {
	return fmt.Sprintf("Table %s marked as free. Attempting to seat waiting customers...", number)
}

func msgTableNotFound(number string) string {
	return fmt.Sprintf("Could not find table %s. Please ensure the table number is correct (e.g., T1, T5, T10).", number)
}

func msgQueued(name string, partySize int) string {
	return fmt.Sprintf("Got it! %s with %d people. You are in the queue. We will notify you when a table is ready.", name, partySize)
}

func msgPartyTooLarge(maxCapacity int) string {
	return fmt.Sprintf("We currently don't have tables for more than %d people. Please try with a smaller group.", maxCapacity)
}

// MsgTableReady is the notification sent when a waiting party gets a table.
func MsgTableReady(name, tableNumber string) string {
	return fmt.Sprintf("Great news, %s! Your table %s is ready. Please proceed to your table.", name, tableNumber)
}

// Evaluate runs one step of the conversation state machine. The returned
// error only ever reflects a directory (persistence) failure; the caller
// should reply with a generic failure message and keep the old session so
// the user can retry the same step.
func (e *ConversationEngine) Evaluate(session *Session, text string) (*Transition, error) {
	trimmed := strings.TrimSpace(text)
	keyword := strings.ToLower(trimmed)

	switch {
	case session.State == StateInitial && keyword == "waiter":
		next := session.Clone()
		next.Role = RoleWaiter
		next.State = StateAwaitingWaiterPassword
		return &Transition{
			Session: next,
			Replies: []string{MsgWaiterPasswordPrompt},
		}, nil

	case session.State == StateAwaitingWaiterPassword && session.Role == RoleWaiter:
		if trimmed != e.waiterPassword {
			// Failed authentication drops the session back to a fresh
			// customer state.
			return &Transition{
				Session: NewSession(),
				Replies: []string{MsgIncorrectPassword},
			}, nil
		}
		next := session.Clone()
		next.State = StateAwaitingFreeTableNumber
		return &Transition{
			Session: next,
			Replies: []string{MsgWaiterAuthenticated},
		}, nil

	case session.State == StateAwaitingFreeTableNumber && session.Role == RoleWaiter:
		return e.evaluateFreeTable(session, trimmed)

	case session.State == StateInitial && keyword == "hi":
		next := session.Clone()
		next.Role = RoleCustomer
		next.State = StateAwaitingNamePeople
		return &Transition{
			Session: next,
			Replies: []string{MsgNamePeoplePrompt},
		}, nil

	case session.State == StateAwaitingNamePeople && session.Role == RoleCustomer:
		return e.evaluateNamePeople(session, trimmed)

	default:
		return &Transition{
			Session: session,
			Replies: []string{MsgHelp},
		}, nil
	}
}

func (e *ConversationEngine) evaluateFreeTable(session *Session, text string) (*Transition, error) {
	number, ok := NormalizeTableNumber(text)
	if !ok {
		// Format error: stay in the same state so the waiter can retry.
		return &Transition{
			Session: session,
			Replies: []string{MsgInvalidTableFormat},
		}, nil
	}

	exists, err := e.directory.TableExists(number)
	if err != nil {
		return nil, fmt.Errorf("table lookup for %s: %w", number, err)
	}
	if !exists {
		return &Transition{
			Session: session,
			Replies: []string{msgTableNotFound(number)},
		}, nil
	}

	return &Transition{
		Session:  NewSession(),
		Replies:  []string{msgTableFreed(number)},
		Commands: []Command{FreeTable{Number: number}},
	}, nil
}

func (e *ConversationEngine) evaluateNamePeople(session *Session, text string) (*Transition, error) {
	name, partySize, ok := parseNamePeople(text)
	if !ok {
		return &Transition{
			Session: session,
			Replies: []string{MsgNamePeopleFormat},
		}, nil
	}
	if partySize <= 0 {
		return &Transition{
			Session: session,
			Replies: []string{MsgPositivePeople},
		}, nil
	}

	maxCapacity, err := e.directory.MaxTableCapacity()
	if err != nil {
		return nil, fmt.Errorf("max table capacity: %w", err)
	}
	if partySize > maxCapacity {
		return &Transition{
			Session: session,
			Replies: []string{msgPartyTooLarge(maxCapacity)},
		}, nil
	}

	return &Transition{
		Session:  NewSession(),
		Replies:  []string{msgQueued(name, partySize)},
		Commands: []Command{EnqueueParty{Name: name, PartySize: partySize}},
	}, nil
}

// NormalizeTableNumber turns waiter input like "table 4", "4" or "t4" into
// the canonical table number "T4". Returns false if nothing is left after
// stripping the word "table".
func NormalizeTableNumber(text string) (string, bool) {
	var b strings.Builder
	lower := strings.ToLower(text)
	for i := 0; i < len(text); {
		if strings.HasPrefix(lower[i:], "table") {
			i += len("table")
			continue
		}
		b.WriteByte(text[i])
		i++
	}
	stripped := strings.TrimSpace(b.String())
	if stripped == "" {
		return "", false
	}
	if _, err := strconv.Atoi(stripped); err == nil {
		return "T" + stripped, true
	}
	return strings.ToUpper(stripped), true
}

// parseNamePeople parses customer input of the form "Name, Count".
func parseNamePeople(text string) (string, int, bool) {
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return "", 0, false
	}
	name := strings.TrimSpace(parts[0])
	countText := strings.TrimSpace(parts[1])
	if name == "" {
		return "", 0, false
	}
	count, err := strconv.Atoi(countText)
	if err != nil {
		return "", 0, false
	}
	return name, count, true
}
