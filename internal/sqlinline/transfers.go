package sqlinline

const QInsertTransfer = `--sql 14983e64-57cf-4770-b20e-3d2716ad9691
insert into transfers(id, proposal_id, provider_ref, status, amount, currency, created_at, updated_at)
values (gen_random_uuid(), $1::uuid, $2::text, 'pending', $3::bigint, $4::text, now(), now())
returning id;
`

const QGetTransferByProviderRef = `--sql 86c87ed5-b225-4e01-b7f1-b49b65ab7aa6
select id, proposal_id, provider_ref, status, amount, currency, failure_reason, created_at, updated_at
from transfers
where provider_ref = $1::text
for update;
`

const QSettleTransfer = `--sql f436d83c-7793-493d-8895-65e211bb9447
update transfers
set status = $2::text, failure_reason = nullif($3::text, ''), updated_at = now()
where id = $1::uuid and status = 'pending';
`
