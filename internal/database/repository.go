package database

type ChatRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (Account, error)
	GetAccountById(accountId int) (Account, error)
	GetAccountByEmail(email string) (Account, error)
	SearchAccounts(query string, limit int) ([]Account, error)
	CreateRoom(name string) (Room, error)
	GetRoom(name string) (Room, error)
	ListRooms() ([]Room, error)
	CreateMessage(conversationId, sender, body string) (Message, error)
	ListMessages(conversationId string) ([]Message, error)
}
