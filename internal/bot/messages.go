package bot

const (
	LangUK = "uk"
	LangRU = "ru"
	LangEN = "en"
)

var messages = map[string]map[string]string{
	LangEN: {
		"greeting":        "Hi there 👋! To register, answer a few questions.",
		"getLanguage":     "Choose language",
		"setLangUk":       "Українська 🇺🇦",
		"setLangRu":       "Русский 🇷🇺",
		"setLangEn":       "English 🇬🇧",
		"languageChanged": "Language changed to 🇬🇧",
		"getPhoneNumber":  "Enter the phone number or press the button below:",
		"sharePhone":      "Use phone number from Telegram",
		"phoneSaved":      "Phone number saved ✔",
		"wrongPhone":      "This does not look like a phone number ❌",
		"getName":         "Enter your full name:",
		"getPassType":     "Choose control type:",
		"passFinished":    "Upload test results",
		"passExpress":     "Pass the test at the entrance",
		"getFile":         "Send a photo or a file of the document:",
		"getNextFile":     "Send the next page of the document:",
		"fileFailed":      "Could not save the file, please send it again.",
		"final":           "Great 👍! Your request is being processed now!",
		"newRequest":      "Register another passenger",
		"startOver":       "Start from the beginning",
		"useButtons":      "Please use the buttons below.",
	},
	LangUK: {
		"greeting":        "Привіт 👋! Для реєстрації дайте відповідь на декілька питань.",
		"getLanguage":     "Виберіть мову",
		"setLangUk":       "Українська 🇺🇦",
		"setLangRu":       "Русский 🇷🇺",
		"setLangEn":       "English 🇬🇧",
		"languageChanged": "Мову змінено 🇺🇦",
		"getPhoneNumber":  "Введіть номер телефону або натисніть кнопку нижче:",
		"sharePhone":      "Використати номер телефону з Telegram",
		"phoneSaved":      "Номер телефону збережено ✔",
		"wrongPhone":      "Це не схоже на номер телефону ❌",
		"getName":         "Введіть ПІБ:",
		"getPassType":     "Виберіть тип проходження контролю:",
		"passFinished":    "Завантажити результати аналізів",
		"passExpress":     "Здати тест на вході",
		"getFile":         "Надішліть фото або файл документа:",
		"getNextFile":     "Надішліть наступну сторінку документа:",
		"fileFailed":      "Не вдалося зберегти файл, надішліть його ще раз.",
		"final":           "Дякуємо за звернення 👍! Ваш запит зараз обробляється!",
		"newRequest":      "Зареєструвати ще одного пасажира",
		"startOver":       "Почати спочатку",
		"useButtons":      "Скористайтеся кнопками нижче.",
	},
	LangRU: {
		"greeting":        "Здравствуйте 👋! Для регистрации ответьте на несколько вопросов.",
		"getLanguage":     "Выберите язык",
		"setLangUk":       "Українська 🇺🇦",
		"setLangRu":       "Русский 🇷🇺",
		"setLangEn":       "English 🇬🇧",
		"languageChanged": "Язык изменен 🇷🇺",
		"getPhoneNumber":  "Введите номер телефона или нажмите кнопку ниже:",
		"sharePhone":      "Использовать номер телефона из Telegram",
		"phoneSaved":      "Номер телефона сохранен ✔",
		"wrongPhone":      "Это не похоже на номер телефона ❌",
		"getName":         "Введите ФИО:",
		"getPassType":     "Выберите тип прохождения контроля:",
		"passFinished":    "Загрузить результаты анализов",
		"passExpress":     "Сдать тест на входе",
		"getFile":         "Отправьте фото или файл документа:",
		"getNextFile":     "Отправьте следующую страницу документа:",
		"fileFailed":      "Не удалось сохранить файл, отправьте его еще раз.",
		"final":           "Отлично! Ваш запрос сейчас в обработке!",
		"newRequest":      "Зарегистрировать еще одного пассажира",
		"startOver":       "Начать сначала",
		"useButtons":      "Воспользуйтесь кнопками ниже.",
	},
}

// T returns the message for key in lang, falling back to English.
func T(lang, key string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	return messages[LangEN][key]
}
