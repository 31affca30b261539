package nats

import (
	"fmt"
	"strings"
)

// TableActionSubjects matches the action subject of every table.
const TableActionSubjects = "table.*.action"

func GetTableStateSubject(tableID string) string {
	return fmt.Sprintf("table.%s.state", tableID)
}

func GetTablePlayerSubject(tableID string, playerID string) string {
	return fmt.Sprintf("table.%s.player.%s", tableID, playerID)
}

func GetTableActionSubject(tableID string) string {
	return fmt.Sprintf("table.%s.action", tableID)
}

func GetTournamentUpdateSubject(tournamentID string) string {
	return fmt.Sprintf("tournament.%s.update", tournamentID)
}

func GetTournamentFinishedSubject(tournamentID string) string {
	return fmt.Sprintf("tournament.%s.finished", tournamentID)
}

// tableIDFromSubject extracts <id> from table.<id>.action.
func tableIDFromSubject(subject string) (string, bool) {
	parts := strings.Split(subject, ".")
	if len(parts) != 3 || parts[0] != "table" || parts[2] != "action" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
