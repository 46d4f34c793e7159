package challenge

import "github.com/terra-clan/challenge-progress/internal/models"

func modelsChallenge(id string, aliases ...string) models.Challenge {
	return models.Challenge{ID: id, Title: id, Aliases: aliases}
}
