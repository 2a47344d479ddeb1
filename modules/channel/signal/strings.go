package signal

import "strings"

// defaultLang is used for unknown languages and missing keys.
const defaultLang = "en"

// catalog holds the user-facing strings by language and key. Placeholders
// are written {name}.
var catalog = map[string]map[string]string{
	"en": {
		"aboutupdated":             "About info updated successfully.",
		"accountcreated":           "Signal account successfully created",
		"accountdeleted":           "Signal account successfully deleted",
		"accountmismatch":          "This number is not the configured Signal bot account",
		"accountverified":          "Signal account successfully verified",
		"adminrequired":            "Only site administrators can manage the Signal bot account",
		"botabout":                 "Bot about",
		"botaccount":               "Signal account number",
		"botaccount_help":          `Your mobile number in an international format: "+ countrycode number" e.g. +99 123 456789`,
		"botname":                  "Bot name",
		"cancel":                   "Cancel",
		"captcha":                  "Captcha token",
		"captchainvalid":           "Captcha token is invalid",
		"configbotaccount":         "Signal messages will be sent from this number. It has to be a valid and active phone number in international format, that you have access to.",
		"configbotname":            "The name of the signal bot.",
		"confirm":                  "Confirm",
		"connectinstructions":      "Instructions",
		"connectinstructions_desc": "Please enter a valid mobile number in an international format. After you have entered your number, we will send you an initial message from the following number: {account} Please follow the instructions in the message to allow this site to send messages to your Signal account.",
		"connectuseraccount":       "Connect my account to Signal",
		"consentdenied":            "Consent denied.",
		"consentgiven":             "Thank you for your consent.",
		"consentmessage": "Hello {name}.\n" +
			"Please respond with \"{consentword}\" to allow this number to send you messages in the future.\n" +
			"Respond with anything else or do not respond within the next 60 seconds to deny your consent.\n" +
			"If you are not {name} and do not want to receive any messages from this number, please do not respond to this message.",
		"consentword":              "I agree",
		"entercaptcha":             "Captcha input",
		"errorcreatingaccount":     "There was an error while creating a signal account",
		"errorcreatingwebhook":     "There was an error while setting the webhook",
		"errordeletingaccount":     "There was an error while deleting the signal account",
		"errordeletingwebhook":     "There was an error while deleting the webhook",
		"errorupdatingaccount":     "There was an error while updating the signal account",
		"errorsendingmessage":      "There was an error while sending the Signal message",
		"errorverifingaccount":     "There was an error while verifying the signal account",
		"forbidden":                "You are not allowed to change the Signal connection of another user",
		"initialmessage":           "Hello {name},\nyou connected your Signal account successfully!",
		"missingcaptcha":           "Please generate and enter a valid Captcha token",
		"missingmessage":           "Could not send message because the message was not set.",
		"missingrecipient":         "Could not send message because the recipient was not set.",
		"nameupdated":              "Account name updated successfully.",
		"notconfigured":            "The Signal Bot hasn't been configured yet so Signal messages cannot be sent",
		"numberinvalid":            `Please input a valid international phone number. Correct format: "+ (country code) (number)"`,
		"pluginname":               "Signal",
		"removeuseraccount":        "Remove Signal connection",
		"requirehttps":             "Site must use HTTPS for Signal's webhook function",
		"save":                     "Save",
		"sessioninvalid":           "Your session has expired. Please start again.",
		"setaccountfirst":          "Please set the botaccount number first.",
		"setwebhook":               "Set webhook",
		"signalchatid":             "Signal chat id",
		"unknownsetting":           "Unknown setting",
		"urlinvalid":               "Please input a valid url",
		"unknownaction":            "Unknown action",
		"useraccountremoved":       "Signal connection removed",
		"verificationtoken":        "Signal token",
		"verificationtokeninvalid": "The given token is not valid",
		"verifyaccount":            "Account verification",
		"webhook":                  "Signal webhook",
		"webhookcreated":           "Webhook successfully set",
		"webhookdeleted":           "Webhook was unset",
		"webhookdesc":              "This is the endpoint that receives and handles updates from the set Signal Bot. Leave this field blank to not setup a webhook.",
		"webhooksettings":          "Webhook Settings",
	},
	"de": {
		"aboutupdated":             "Info erfolgreich aktualisiert.",
		"accountcreated":           "Signal Account erfolgreich erstellt",
		"accountdeleted":           "Signal Account erfolgreich gelöscht",
		"accountmismatch":          "Diese Nummer ist nicht der eingerichtete Signal Bot Account",
		"accountverified":          "Signal Account erfolgreich verifiziert",
		"adminrequired":            "Nur Administratoren können den Signal Bot verwalten",
		"botabout":                 "Bot-Info",
		"botaccount":               "Signal Account Nummer",
		"botaccount_help":          `Ihre Mobiltelefonnummer im internationalen Format: "+ (Ländercode) (Nummer)" z.B +99 123 456789`,
		"botname":                  "Bot-Name",
		"cancel":                   "Abbrechen",
		"captcha":                  "Captcha Token",
		"captchainvalid":           "Captcha Token ist nicht korrekt",
		"configbotaccount":         "Signal Nachrichten werden von dieser Nummer versendet. Die angegebene Nummer muss eine valide und aktive Telefonnummer im internationalen Format sein, auf die Sie Zugriff haben.",
		"configbotname":            "Der Name des Signal Bots.",
		"confirm":                  "Bestätigen",
		"connectinstructions":      "Anleitung",
		"connectinstructions_desc": `Bitte geben Sie in folgendem Feld eine valide Mobiltelefon-Nummer im internationalen Format ("+ (Ländercode) (Nummer)") an. Nach Angabe Ihrer Nummer werden wir Ihnen eine erste Nachricht von folgender Nummer zusenden: {account} Bitte folgen Sie den Anweisungen in der Nachricht, um dieser Seite zu erlauben Ihnen Nachrichten an Ihren Signal-Account zu schicken.`,
		"connectuseraccount":       "Verknüpfe meinen Account mit Signal",
		"consentdenied":            "Einverständnis verweigert.",
		"consentgiven":             "Vielen Dank für Ihr Einverständnis.",
		"consentmessage": "Hallo {name}.\n" +
			"Bitte antworten Sie mit \"{consentword}\" um zu erlauben, dass wir Ihnen Signal-Nachrichten schicken dürfen.\n" +
			"Wenn Sie irgendetwas anderes antworten oder nicht in den nächsten 60 Sekunden antworten, werten wir dies als Ablehnung.\n" +
			"Wenn Sie nicht {name} sind und Sie keine Nachrichten von uns erhalten wollen, dann antworten Sie bitte nicht auf diese Nachricht.",
		"consentword":              "Einverstanden",
		"entercaptcha":             "Captcha Eingabe",
		"errorcreatingaccount":     "Beim Anlegen des Signal Accounts ist ein Fehler aufgetreten",
		"errorcreatingwebhook":     "Beim Anlegen des Webhooks ist ein Fehler aufgetreten",
		"errordeletingaccount":     "Beim Löschen des Signal Accounts ist ein Fehler aufgetreten",
		"errordeletingwebhook":     "Beim Löschen des Webhooks ist ein Fehler aufgetreten",
		"errorupdatingaccount":     "Beim Aktualisieren des Signal Accounts ist ein Fehler aufgetreten",
		"errorsendingmessage":      "Beim Senden der Signal Nachricht ist ein Fehler aufgetreten",
		"errorverifingaccount":     "Beim Verifizieren des Signal Accounts ist ein Fehler aufgetreten",
		"forbidden":                "Sie dürfen die Signal-Verbindung anderer Nutzer nicht ändern",
		"initialmessage":           "Hallo {name},\ndu hast erfolgreich deinen Signal-Account verbunden!",
		"missingcaptcha":           "Bitte generieren Sie einen validen Captcha Token",
		"missingmessage":           "Die Nachricht konnte nicht gesendet werden, da kein Text angegeben wurde.",
		"missingrecipient":         "Die Nachricht konnte nicht gesendet werden, da kein Empfänger angegeben wurde.",
		"nameupdated":              "Account-Name erfolgreich aktualisiert.",
		"notconfigured":            "Signal-Nachrichten können nicht versendet werden, da der Signal-Server noch nicht konfiguriert wurde",
		"numberinvalid":            `Geben Sie eine valide internationale Nummer an. Korrektes Format: "+ (Ländercode) (Nummer)"`,
		"pluginname":               "Signal",
		"removeuseraccount":        "Entferne Signal-Verbindung",
		"requirehttps":             "Die Seite muss HTTPS für Signals Webhook-Funktion unterstützen",
		"save":                     "Speichern",
		"sessioninvalid":           "Ihre Sitzung ist abgelaufen. Bitte beginnen Sie erneut.",
		"setaccountfirst":          "Bitte legen Sie zuerst die Signal Account Nummer fest.",
		"setwebhook":               "Webhook anlegen",
		"signalchatid":             "Signal-Chat-ID",
		"unknownsetting":           "Unbekannte Einstellung",
		"urlinvalid":               "Bitte geben Sie eine valide URL an",
		"unknownaction":            "Unbekannte Aktion",
		"useraccountremoved":       "Signal-Verbindung entfernt",
		"verificationtoken":        "Signal Token",
		"verificationtokeninvalid": "Der angegebene Token ist nicht valide",
		"verifyaccount":            "Account-Verifizierung",
		"webhook":                  "Signal-Webhook",
		"webhookcreated":           "Webhook wurde erfolgreich angelegt",
		"webhookdeleted":           "Webhook wurde entfernt",
		"webhookdesc":              "Dies ist der Endpunkt, der eingehende Updates vom Bot erhält und verarbeitet. Lassen Sie dieses Feld leer, um keinen Webhook anzulegen.",
		"webhooksettings":          "Webhook Einstellungen",
	},
}

// NormalizeLang reduces a language tag such as "de_DE" or "de-AT" to a
// catalog language, falling back to English.
func NormalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "_-"); i > 0 {
		lang = lang[:i]
	}
	if _, ok := catalog[lang]; ok {
		return lang
	}
	return defaultLang
}

// T returns the string for key in lang with {placeholder} values
// substituted. Unknown keys render as "[[key]]".
func T(lang, key string, args map[string]string) string {
	s, ok := catalog[NormalizeLang(lang)][key]
	if !ok {
		s, ok = catalog[defaultLang][key]
	}
	if !ok {
		return "[[" + key + "]]"
	}
	for k, v := range args {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}
