// Package i18n carries the static message catalog. Lookups are keyed by
// locale and message key; templates are fmt strings filled by callers. An
// unresolved slot in rendered output is a programming bug, never a runtime
// error.
package i18n

import "fmt"

// DefaultLocale applies when a sender has no stored preference.
const DefaultLocale = "pt"

// Locales lists the selectable locales, in keyboard order.
var Locales = []string{"pt", "en"}

// Key names one catalog entry.
type Key string

const (
	KeyHelp              Key = "help"
	KeyGreetingNew       Key = "greeting_new"
	KeyGreetingReturning Key = "greeting_returning"
	KeyAskUsername       Key = "ask_username"
	KeyAskNewUsername    Key = "ask_new_username"
	KeyInvalidUsername   Key = "invalid_username"
	KeyRegistered        Key = "registered"
	KeyCancelled         Key = "cancelled"
	KeyAckUsage          Key = "ack_usage"
	KeyAckConfirmation   Key = "ack_confirmation"
	KeyAckArtifact       Key = "ack_artifact"
	KeyAckFailed         Key = "ack_failed"
	KeyNotFound          Key = "not_found"
	KeyUnknownCommand    Key = "unknown_command"
	KeyApology           Key = "apology"
	KeyChooseLocale      Key = "choose_locale"
	KeyLocaleSaved       Key = "locale_saved"
)

var catalog = map[string]map[Key]string{
	"pt": {
		KeyHelp: "Precisa de ajuda, *%s*?\n\n" +
			"Segue uma lista de comandos que você pode usar:\n\n" +
			"🥰 /ack @nomedapessoa Mensagem de gratidaum\n" +
			"       📜 Envia gratidaum para a pessoa selecionada.\n" +
			"🤔 /help ou /ajuda\n" +
			"       📜 Esse menu de ajuda\n\n" +
			"[🤖 Inicie a configuração CLICANDO AQUI 🤖](%s)\n\n" +
			"*OBS:* Nunca compartilhe sua senha com ninguém, e a guarde em lugar seguro.",
		KeyGreetingNew: "Oie! Prazer em te conhecer, *%s*\n\n" +
			"Eu sou um _robô_ que está aqui pra te ajudar a configurar sua conta\n\n" +
			"Eu preciso saber o *username* da sua conta SEEDS para que você possa receber *Gratidaum*.\n\n" +
			"*OBS:* Nunca compartilhe sua senha com ninguém, e a guarde em lugar seguro.",
		KeyGreetingReturning: "Olá novamente, *%s*\n\n" +
			"Você já tem uma conta do SEEDS cadastrada com o username: *%s*.\n\n" +
			"*OBS:* Nunca compartilhe sua senha com ninguém, e a guarde em lugar seguro.",
		KeyAskUsername:     "Qual seu username do SEEDS?",
		KeyAskNewUsername:  "Qual o novo username do SEEDS?",
		KeyInvalidUsername: "Oh Não! Isso não é um username válido. Vamos tentar novamente.\nQual seu username do SEEDS? (Ex: felipenseeds)",
		KeyRegistered: "Muito bem *%s*!\n" +
			"Seu username do SEEDS: *%s*\n" +
			"Agora você já pode enviar e receber Gratidaum!",
		KeyCancelled:       "Tudo bem, cadastro cancelado. Quando quiser, é só mandar /start de novo.",
		KeyAckUsage:        "Use /ack @nome Escreva seu Agradecimento",
		KeyAckConfirmation: "%s envia Gratidaum para %s - %s",
		KeyAckArtifact: "Gratidaum para *%s* está quase lá!\n\n" +
			"[Assine a transação na sua carteira](%s)\n\n" +
			"Ou escaneie o QR code: %s",
		KeyAckFailed: "Ops. Não consegui gerar a transação de Gratidaum agora. Tente novamente em instantes.",
		KeyNotFound: "Não encontramos essa pessoa de nome *%s*, talvez seja necessário essa pessoa se registrar.\n\n" +
			"[🤖 Peça que a pessoa inicie a configuração CLICANDO AQUI 🤖](%s)",
		KeyUnknownCommand: "Ops! Eu não conheço esse comando: [%s].",
		KeyApology:        "Ops. Algo deu errado",
		KeyChooseLocale:   "Em qual idioma você prefere conversar?",
		KeyLocaleSaved:    "Idioma salvo!",
	},
	"en": {
		KeyHelp: "Need help, *%s*?\n\n" +
			"Here is the list of commands you can use:\n\n" +
			"🥰 /ack @somebody Your gratitude message\n" +
			"       📜 Sends gratitude to the selected person.\n" +
			"🤔 /help or /ajuda\n" +
			"       📜 This help menu\n\n" +
			"[🤖 Start the setup by CLICKING HERE 🤖](%s)\n\n" +
			"*NOTE:* Never share your password with anyone, and keep it somewhere safe.",
		KeyGreetingNew: "Hi! Nice to meet you, *%s*\n\n" +
			"I am a _robot_ here to help you set up your account\n\n" +
			"I need to know the *username* of your SEEDS account so you can receive *Gratidaum*.\n\n" +
			"*NOTE:* Never share your password with anyone, and keep it somewhere safe.",
		KeyGreetingReturning: "Hello again, *%s*\n\n" +
			"You already have a SEEDS account linked with the username: *%s*.\n\n" +
			"*NOTE:* Never share your password with anyone, and keep it somewhere safe.",
		KeyAskUsername:     "What is your SEEDS username?",
		KeyAskNewUsername:  "What is the new SEEDS username?",
		KeyInvalidUsername: "Oh no! That is not a valid username. Let's try again.\nWhat is your SEEDS username? (E.g.: felipenseeds)",
		KeyRegistered: "Well done *%s*!\n" +
			"Your SEEDS username: *%s*\n" +
			"You can now send and receive Gratidaum!",
		KeyCancelled:       "All right, registration cancelled. Send /start again whenever you want.",
		KeyAckUsage:        "Use /ack @name Write your thank-you note",
		KeyAckConfirmation: "%s sends Gratidaum to %s - %s",
		KeyAckArtifact: "Gratidaum for *%s* is almost there!\n\n" +
			"[Sign the transaction in your wallet](%s)\n\n" +
			"Or scan the QR code: %s",
		KeyAckFailed: "Oops. I could not build the Gratidaum transaction right now. Please try again shortly.",
		KeyNotFound: "We could not find anyone named *%s*, maybe that person still needs to register.\n\n" +
			"[🤖 Ask them to start the setup by CLICKING HERE 🤖](%s)",
		KeyUnknownCommand: "Oops! I do not know that command: [%s].",
		KeyApology:        "Oops. Something went wrong",
		KeyChooseLocale:   "Which language do you prefer?",
		KeyLocaleSaved:    "Language saved!",
	},
}

// T returns the raw template for key in the given locale, falling back to the
// default locale.
func T(locale string, key Key) string {
	if messages, ok := catalog[locale]; ok {
		if msg, ok := messages[key]; ok {
			return msg
		}
	}
	return catalog[DefaultLocale][key]
}

// F renders the template for key with the given arguments.
func F(locale string, key Key, args ...any) string {
	template := T(locale, key)
	if len(args) == 0 {
		return template
	}
	return fmt.Sprintf(template, args...)
}

// Supported reports whether the locale is a selectable option.
func Supported(locale string) bool {
	for _, l := range Locales {
		if l == locale {
			return true
		}
	}
	return false
}
