// Package log segura o logger global zerolog do graphstore.
//
// O engine e o manager só precisam de child loggers por componente; a
// configuração vem direto dos campos de pkg/config (nível textual e
// formato). Sem Init, o logger fica no zero value do zerolog e tudo é
// descartado — útil nos testes, que não querem output.
package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger é a instância global. Zero value = descarta tudo.
var Logger zerolog.Logger

// Init configura o logger global. level é o nome zerolog ("debug",
// "info", "warn", "error"; desconhecido cai em info). json escolhe
// entre saída JSON e console legível, sempre em stderr.
func Init(level string, json bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if json {
		Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// WithComponent cria um child logger com o campo component
// ("engine", "kcv").
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
