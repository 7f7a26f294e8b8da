// Package stats counts the local player's finished games.
package stats

// Outcome is one participant's result attached to a finished game.
type Outcome struct {
	IsDefending bool `json:"is_defending"`
	IsLandlord  bool `json:"is_landlord"`
	WonGame     bool `json:"won_game"`
	RanksGained int  `json:"ranks_up"`
}

// GameStatistics holds cumulative counters for the local player over one
// session.
type GameStatistics struct {
	GamesPlayed            int `json:"gamesPlayed"`
	GamesPlayedAsDefending int `json:"gamesPlayedAsDefending"`
	GamesPlayedAsLandlord  int `json:"gamesPlayedAsLandlord"`
	GamesWon               int `json:"gamesWon"`
	GamesWonAsDefending    int `json:"gamesWonAsDefending"`
	GamesWonAsLandlord     int `json:"gamesWonAsLandlord"`
	RanksGainedTotal       int `json:"ranksUp"`
}

// Fold returns s with the outcome of one more finished game counted in.
// The landlord counters only move for defending games, since the landlord
// always plays on the defending team.
func Fold(s GameStatistics, o Outcome) GameStatistics {
	s.GamesPlayed++
	if o.IsDefending {
		s.GamesPlayedAsDefending++
		if o.IsLandlord {
			s.GamesPlayedAsLandlord++
		}
	}

	if o.WonGame {
		s.GamesWon++
		if o.IsDefending {
			s.GamesWonAsDefending++
			if o.IsLandlord {
				s.GamesWonAsLandlord++
			}
		}
	}

	// Negative ranks would break the monotonic counters.
	if o.RanksGained > 0 {
		s.RanksGainedTotal += o.RanksGained
	}
	return s
}

// WinRate returns the fraction of played games that were won, or 0 before
// the first game.
func (s GameStatistics) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.GamesWon) / float64(s.GamesPlayed)
}
