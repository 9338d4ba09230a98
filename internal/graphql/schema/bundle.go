// Package gqlschema holds the generated GraphQL SDL bundle for the
// indexed chain data, generalizing the teacher's TransactionList/
// BlockList/ListPageInfo connection pattern from Opera's account/block/
// transaction entities to Concordium's.
package gqlschema

const Schema = `
scalar Hash
scalar BigInt
scalar Long
scalar Bytes
scalar Cursor

# ListPageInfo mirrors the Relay-style page info of every connection
# field below (§4.4).
type ListPageInfo {
	first: Cursor
	last: Cursor
	hasNext: Boolean!
	hasPrevious: Boolean!
}

type AccountEdge {
	cursor: Cursor!
	node: Account!
}

type AccountList {
	edges: [AccountEdge!]!
	totalCount: Long!
	pageInfo: ListPageInfo!
}

type BlockEdge {
	cursor: Cursor!
	node: Block!
}

type BlockList {
	edges: [BlockEdge!]!
	totalCount: Long!
	pageInfo: ListPageInfo!
}

type TransactionEdge {
	cursor: Cursor!
	node: Transaction!
}

type TransactionList {
	edges: [TransactionEdge!]!
	totalCount: Long!
	pageInfo: ListPageInfo!
}

type ValidatorEdge {
	cursor: Cursor!
	node: Validator!
}

type ValidatorList {
	edges: [ValidatorEdge!]!
	totalCount: Long!
	pageInfo: ListPageInfo!
}

type ContractEdge {
	cursor: Cursor!
	node: Contract!
}

type ContractList {
	edges: [ContractEdge!]!
	totalCount: Long!
	pageInfo: ListPageInfo!
}

type CIS2TokenEdge {
	cursor: Cursor!
	node: CIS2Token!
}

type CIS2TokenList {
	edges: [CIS2TokenEdge!]!
	totalCount: Long!
	pageInfo: ListPageInfo!
}

# ScheduledRelease is one pending (release-time, amount) pair owned by an
# account (§3 Scheduled release).
type ScheduledRelease {
	releaseTime: Long!
	amount: BigInt!
}

# Account is the §3 Account entity.
type Account {
	"Index is the account's dense primary key."
	index: Long!

	"Address is the account's canonical Base58Check textual address."
	address: String!

	"Amount is the account's current balance in microCCD."
	amount: BigInt!

	"TxCount is the number of transactions that have affected this account."
	txCount: Long!

	"DelegatedStake is non-zero only while the account delegates."
	delegatedStake: BigInt!

	"DelegatedTargetBakerId is null for the passive pool or a non-delegating account."
	delegatedTargetBakerId: Long

	"Delegating reports whether the account currently delegates stake."
	delegating: Boolean!

	"ScheduledReleases lists every still-pending scheduled release."
	scheduledReleases: [ScheduledRelease!]!

	"Validator is non-null when this account also owns a validator (baker)."
	validator: Validator

	"Transactions lists every transaction that touched this account."
	transactions(first: Int, after: Cursor, last: Int, before: Cursor): TransactionList!
}

# Validator is the §3 Validator ("baker") entity.
type Validator {
	id: Long!
	stakedAmount: BigInt!
	restakeEarnings: Boolean!
	openStatus: String!
	metadataUrl: String!
	transactionFeeCommission: Float!
	bakingRewardCommission: Float!
	finalizationRewardCommission: Float!
	poolTotalStaked: BigInt!
	poolDelegatorCount: Long!

	"SuspensionState is one of Active, Primed, Inactive, SelfSuspended."
	suspensionState: String!
}

# Transaction is the §3 Transaction entity.
type Transaction {
	index: Long!
	hash: Hash!
	blockHeight: Long!
	block: Block!
	costMicroCcd: BigInt!
	energyCost: Long!
	sender: Account
	family: String!
	subtype: String!
	success: Boolean!

	"EventsJson holds the tagged event list on success, null on failure."
	eventsJson: Bytes

	"RejectJson holds the tagged reject reason on failure, null on success."
	rejectJson: Bytes
}

# Block is the §3 Block entity.
type Block {
	height: Long!
	hash: Hash!
	slotTime: Long!
	blockTimeMs: Long!
	baker: Validator
	cumulativeTransactionCount: Long!
	finalizationTimeMs: Long
	finalizedBy: Long
	cumulativeFinalizationTimeMs: Long!
	totalAmount: BigInt!
	totalStakedAmount: BigInt!
	transactionCount: Int!
	transactions: [Transaction!]!
}

# ModuleLink is one append-only row of a module's linkage history.
type ModuleLink {
	contractAddress: String!
	event: String!
	txIndex: Long!
}

# Module is the §3 Smart-contract module entity.
type Module {
	ref: Hash!
	hasSchema: Boolean!
	initTxIndex: Long!
	links: [ModuleLink!]!
}

# Contract is the §3 Contract instance entity.
type Contract {
	index: Long!
	subIndex: Long!
	address: String!
	moduleRef: Hash!
	module: Module
	initName: String!
	amount: BigInt!
	initTxIndex: Long!
	lastUpgradeTxIndex: Long

	"Tokens lists the CIS-2 tokens minted by this contract, if any."
	tokens(first: Int, after: Cursor, last: Int, before: Cursor): CIS2TokenList!
}

# CIS2Token is the §3 CIS-2 token entity.
type CIS2Token {
	index: Long!
	contractAddress: String!
	rawTokenId: String!
	tokenAddress: String!

	"TotalSupply is signed to accommodate non-conformant contracts (§9)."
	totalSupply: BigInt!

	metadataUrl: String!
}

# PLT is the §3 Protocol-Level Token entity.
type PLT {
	tokenId: String!
	issuer: Account!
	moduleRef: Hash!
	decimals: Int!
	initialSupply: BigInt!
	minted: BigInt!
	burned: BigInt!
	currentSupply: BigInt!
	paused: Boolean!
}

# ChainParameters is the single-row §3 Chain parameters entity.
type ChainParameters {
	epochDurationMs: Long!
	rewardPeriodLength: Long!
	lastPaydayBlockHeight: Long!
}

# CurrentState summarizes the chain's indexed state in one round trip.
type CurrentState {
	lastBlock: Block
	blockCount: Long!
	transactionCount: Long!
	accountCount: Long!
	validatorCount: Long!
	chainParameters: ChainParameters!
}

type Query {
	"State summarizes the chain's currently indexed tip."
	state: CurrentState!

	"Account looks up an account by its Base58Check address."
	account(address: String!): Account

	"Accounts pages over every indexed account."
	accounts(first: Int, after: Cursor, last: Int, before: Cursor): AccountList!

	"Block returns the most recent block if neither height nor hash is given."
	block(height: Long, hash: Hash): Block

	"Blocks pages over every indexed block."
	blocks(first: Int, after: Cursor, last: Int, before: Cursor): BlockList!

	"Transaction looks up a transaction by hash."
	transaction(hash: Hash!): Transaction

	"Transactions pages over every indexed transaction."
	transactions(first: Int, after: Cursor, last: Int, before: Cursor): TransactionList!

	"Validator looks up a validator by its baker id."
	validator(id: Long!): Validator

	"Validators pages over every indexed validator."
	validators(first: Int, after: Cursor, last: Int, before: Cursor): ValidatorList!

	"Contract looks up a contract instance by its (index, subIndex) address."
	contract(index: Long!, subIndex: Long!): Contract

	"Contracts pages over every indexed contract instance."
	contracts(first: Int, after: Cursor, last: Int, before: Cursor): ContractList!

	"Module looks up a smart-contract module by its reference hash."
	module(ref: Hash!): Module

	"Cis2Token looks up a CIS-2 token by its derived token address."
	cis2Token(tokenAddress: String!): CIS2Token

	"Plt looks up a protocol-level token by its chain-level id."
	plt(tokenId: String!): PLT

	"Plts pages over every protocol-level token, keyed by token id. After is the last-seen token id verbatim, not an opaque Cursor."
	plts(first: Int, after: String): [PLT!]!
}

type Subscription {
	"OnBlock fires once per block as the indexer commits it."
	onBlock: Block!
}

schema {
	query: Query
	subscription: Subscription
}
`
