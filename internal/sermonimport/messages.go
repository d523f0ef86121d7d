package sermonimport

import "strings"

// Messages is the catalog of user-facing texts produced by the engine.
// Row statuses stay machine codes; everything a person reads comes from here.
type Messages struct {
	EmptyBatch       string
	MissingTime      string
	MissingSpeaker   string
	InvalidDateTime  string
	EndBeforeStart   string
	Duplicate        string
	Identical        string
	AlreadyExists    string
	Created          string
	Reused           string
	UnknownError     string
	UpdateFailed     string
	ExistingNotFound string
	EventNotCreated  string
	SermonNotCreated string
	DefaultTitle     string
	DefaultSpeaker   string

	// Request-level texts, used by the HTTP and CLI front ends.
	NoData       string
	InvalidBody  string
	CheckFailed  string
	ImportFailed string

	StatusLabels map[Status]string
}

// Label returns the display label for a status.
func (m Messages) Label(s Status) string {
	if label, ok := m.StatusLabels[s]; ok {
		return label
	}
	return s.String()
}

// English is the catalog used when IMPORT_LOCALE is "en".
var English = Messages{
	EmptyBatch:       "The file contains no data.",
	MissingTime:      "Missing start or end time.",
	MissingSpeaker:   "Missing speaker.",
	InvalidDateTime:  "Invalid date or time.",
	EndBeforeStart:   "End time must be after start time.",
	Duplicate:        "Duplicate row in the file. Only the first occurrence will be imported.",
	Identical:        "Data identical to existing sermon, import skipped.",
	AlreadyExists:    "A sermon already exists at this time.",
	Created:          "Sermon imported successfully.",
	Reused:           "Existing sermon was updated with the new data.",
	UnknownError:     "Unknown error.",
	UpdateFailed:     "Existing sermon could not be updated.",
	ExistingNotFound: "Existing sermon could not be found.",
	EventNotCreated:  "Event could not be created.",
	SermonNotCreated: "Sermon could not be created.",
	DefaultTitle:     "Unknown service",
	DefaultSpeaker:   "Unknown speaker",
	NoData:           "No data received",
	InvalidBody:      "Request body must contain a sermons array.",
	CheckFailed:      "Server error during check.",
	ImportFailed:     "Server error during import.",
	StatusLabels: map[Status]string{
		StatusNew:       "New row",
		StatusExisting:  "Will be updated",
		StatusError:     "Error",
		StatusEmpty:     "Empty",
		StatusInvalid:   "Invalid",
		StatusDuplicate: "Duplicate",
		StatusSkipped:   "Skipped",
		StatusCreated:   "Created",
		StatusReused:    "Reused",
	},
}

// Dutch is the default catalog.
var Dutch = Messages{
	EmptyBatch:       "Het bestand bevat geen gegevens.",
	MissingTime:      "Ontbrekende start- of eindtijd.",
	MissingSpeaker:   "Ontbrekende spreker.",
	InvalidDateTime:  "Ongeldige datum of tijd.",
	EndBeforeStart:   "Eindtijd moet later zijn dan starttijd.",
	Duplicate:        "Dubbele rij in het bestand. Alleen de eerste wordt geïmporteerd.",
	Identical:        "De gegevens zijn gelijk aan de bestaande preek. Import wordt overgeslagen.",
	AlreadyExists:    "Er bestaat al een preek op dit tijdstip.",
	Created:          "Preek succesvol geïmporteerd.",
	Reused:           "Bestaande preek is bijgewerkt met de nieuwe gegevens.",
	UnknownError:     "Onbekende fout.",
	UpdateFailed:     "Bestaande preek kon niet worden bijgewerkt.",
	ExistingNotFound: "Bestaande preek kon niet worden gevonden.",
	EventNotCreated:  "Event kon niet worden aangemaakt.",
	SermonNotCreated: "Preek kon niet worden aangemaakt.",
	DefaultTitle:     "Onbekende dienst",
	DefaultSpeaker:   "Onbekende spreker",
	NoData:           "Geen data ontvangen",
	InvalidBody:      "Het verzoek moet een lijst met preken bevatten.",
	CheckFailed:      "Serverfout bij controle.",
	ImportFailed:     "Serverfout bij import.",
	StatusLabels: map[Status]string{
		StatusNew:       "Nieuwe rij",
		StatusExisting:  "Wordt geüpdatet",
		StatusError:     "Fout",
		StatusEmpty:     "Leeg",
		StatusInvalid:   "Ongeldig",
		StatusDuplicate: "Dubbel",
		StatusSkipped:   "Overgeslagen",
		StatusCreated:   "Aangemaakt",
		StatusReused:    "Hergebruikt",
	},
}

// MessagesFor returns the catalog for a locale tag, falling back to Dutch.
func MessagesFor(locale string) Messages {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "en", "en-us", "en-gb", "english":
		return English
	default:
		return Dutch
	}
}

// IsSupportedLocale reports whether MessagesFor has a dedicated catalog.
func IsSupportedLocale(locale string) bool {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "en", "en-us", "en-gb", "english", "nl", "nl-nl", "dutch":
		return true
	}
	return false
}
