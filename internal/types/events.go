package types

const (
	EventTypeTableCreated        = "TableCreated"
	EventTypeVaultFunded         = "VaultFunded"
	EventTypeGameCreated         = "GameCreated"
	EventTypeRandomnessFulfilled = "RandomnessFulfilled"
	EventTypeCardDealt           = "CardDealt"
	EventTypePlayerStood         = "PlayerStood"
	EventTypeDealerStood         = "DealerStood"
	EventTypeStatusChanged       = "StatusChanged"
	EventTypeGameSettled         = "GameSettled"

	EventTypeBankMinted        = "BankMinted"
	EventTypeBankSent          = "BankSent"
	EventTypeAccountRegistered = "AccountRegistered"
)
