package contracts

// EventFactoryABI is the subset of the EventFactory contract the client calls
const EventFactoryABI = `[
  {
    "inputs": [{"internalType": "address", "name": "artist", "type": "address"}],
    "name": "getArtistEvents",
    "outputs": [{"internalType": "address[]", "name": "", "type": "address[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "artist", "type": "address"},
      {"internalType": "string", "name": "eventName", "type": "string"},
      {"internalType": "uint256", "name": "ticketPrice", "type": "uint256"},
      {"internalType": "uint256", "name": "seatingCapacity", "type": "uint256"},
      {"internalType": "uint256", "name": "cancellationCharge", "type": "uint256"},
      {"internalType": "address", "name": "eventToken", "type": "address"}
    ],
    "name": "createEvent",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "artist", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "eventAddress", "type": "address"}
    ],
    "name": "EventCreated",
    "type": "event"
  }
]`

// EventABI is the subset of the per-event contract the client calls
const EventABI = `[
  {
    "inputs": [],
    "name": "getEventData",
    "outputs": [
      {"internalType": "string", "name": "eventName", "type": "string"},
      {"internalType": "uint256", "name": "ticketPrice", "type": "uint256"},
      {"internalType": "uint256", "name": "seatingCapacity", "type": "uint256"},
      {"internalType": "uint256", "name": "cancellationCharge", "type": "uint256"},
      {"internalType": "address", "name": "eventToken", "type": "address"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "totalTicketsSold",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "name": "tickets",
    "outputs": [
      {"internalType": "uint256", "name": "tokenId", "type": "uint256"},
      {"internalType": "address", "name": "buyer", "type": "address"},
      {"internalType": "bool", "name": "attended", "type": "bool"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "reserveTicket",
    "outputs": [],
    "stateMutability": "payable",
    "type": "function"
  }
]`

// TokenABI is the ERC20 balanceOf function
const TokenABI = `[{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`
