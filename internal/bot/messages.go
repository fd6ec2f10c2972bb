package bot

// User-facing texts.
const (
	msgBusy             = "рулетка уже крутиться. подождите"
	msgChallengePending = "сначала реши капчу.\nКапча: %s Ответь числом."
	msgChallengeIssued  = "Капча: %s Ответь числом."
	msgChallengeWrong   = "неверно, попробуй ещё.\nКапча: %s Ответь числом."
	msgChallengeSolved  = "капча пройдена, можешь снова использовать /spin"
	msgPersistFailed    = "временная ошибка сохранения, обратитесь к %s"
	msgUnhandled        = "Произошла ошибка. Попробуйте позже."
	msgReveal           = "вам выпало %s"
	msgDeleteFailed     = "не удалось удалить анимацию (нет прав)"
	msgForeignInventory = "не твой инвентарь"
	msgHelp             = "автор @HATE_death_ME"

	buttonPrev = "◀️"
	buttonNext = "▶️"
)
