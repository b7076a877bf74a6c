package contract

// ABI is the interface of the StorageCost contract.
const ABI = `[
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": false,
				"internalType": "string",
				"name": "data",
				"type": "string"
			}
		],
		"name": "DataEmitted",
		"type": "event"
	},
	{
		"inputs": [
			{
				"internalType": "string",
				"name": "data",
				"type": "string"
			}
		],
		"name": "emitDataAsEvent",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "string",
				"name": "data",
				"type": "string"
			}
		],
		"name": "storeDataInSelf",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "string",
				"name": "data",
				"type": "string"
			}
		],
		"name": "storeDataInChildContract",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "readRecentDataFromSelf",
		"outputs": [
			{
				"internalType": "string",
				"name": "",
				"type": "string"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "readRecentChildData",
		"outputs": [
			{
				"internalType": "string",
				"name": "",
				"type": "string"
			}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// Method and event names of the StorageCost contract.
const (
	MethodEmitDataAsEvent          = "emitDataAsEvent"
	MethodStoreDataInSelf          = "storeDataInSelf"
	MethodStoreDataInChildContract = "storeDataInChildContract"
	MethodReadRecentDataFromSelf   = "readRecentDataFromSelf"
	MethodReadRecentChildData      = "readRecentChildData"
	EventDataEmitted               = "DataEmitted"
)
