package server

// Server объединяет HTTP-серверы отдельных сущностей: витрину,
// розыгрыши и пользователя.
type Server struct {
	MarketServer
	GiveawayServer
	UserServer
}

func NewServer(
	marketServer MarketServer,
	giveawayServer GiveawayServer,
	userServer UserServer,
) Server {
	return Server{
		MarketServer:   marketServer,
		GiveawayServer: giveawayServer,
		UserServer:     userServer,
	}
}
