package docstore

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/domain"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/repository"
)

const defaultTimeLimit = 20

// DefaultQuestions is the built-in shared-guess pool. Categories line
// up with the bot pattern tables so synthetic players can answer them.
func DefaultQuestions() []*domain.Question {
	mk := func(text, category string) *domain.Question {
		return &domain.Question{
			Text:             text,
			AnswerKind:       domain.AnswerKindText,
			RoundKind:        domain.RoundKindSharedGuess,
			Category:         category,
			TimeLimitSeconds: defaultTimeLimit,
		}
	}
	return []*domain.Question{
		mk("Kahvaltıda sofradan eksik olmayan şey nedir?", "kahvaltilik"),
		mk("Yaz sıcağında ilk akla gelen içecek nedir?", "icecek"),
		mk("Manavda ilk göze çarpan meyve hangisidir?", "meyve"),
		mk("Tatile gidilecek ilk şehir neresidir?", "sehir"),
		mk("Gökyüzü denince akla gelen renk nedir?", "renk"),
		mk("Evde beslenecek ilk hayvan hangisidir?", "hayvan"),
		mk("Akşam izlenecek film türü nedir?", "film"),
		mk("Sabah uyanınca ilk içilen şey nedir?", "icecek"),
		mk("Pikniğe götürülecek ilk yiyecek nedir?", "kahvaltilik"),
		mk("Türkiye denince akla gelen şehir neresidir?", "sehir"),
		mk("Çocukların en sevdiği hayvan hangisidir?", "hayvan"),
		mk("Düğünde giyilen gelinliğin rengi nedir?", "renk"),
		mk("Kışın en çok tüketilen meyve hangisidir?", "meyve"),
		mk("Sinemada en çok izlenen film türü nedir?", "film"),
	}
}

// SeedQuestions inserts the default pool when the store is empty.
func SeedQuestions(ctx context.Context, questions repository.QuestionRepository) error {
	count, err := questions.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	pool := DefaultQuestions()
	if err := questions.CreateMany(ctx, pool); err != nil {
		return err
	}
	log.Info().Int("count", len(pool)).Msg("seeded question pool")
	return nil
}
