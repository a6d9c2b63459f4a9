package sqlinline

const QUpsertGoogleUser = `--sql bd93e504-6a43-4d82-a72b-bff22b71f2e8
with incoming as (
    select
        $1::text as google_sub,
        $2::text as email,
        $3::text as name,
        $4::text as picture,
        $5::text as locale
)
insert into users (id, google_sub, email, name, avatar_url, plan, locale_pref, properties, created_at, updated_at)
values (gen_random_uuid(), (select google_sub from incoming), (select email from incoming), (select name from incoming),
        (select picture from incoming), 'free', (select locale from incoming),
        jsonb_build_object('quota_daily', 5, 'quota_used_today', 0), now(), now())
on conflict (google_sub) do update set
    email = excluded.email,
    name = excluded.name,
    avatar_url = excluded.avatar_url,
    locale_pref = excluded.locale_pref,
    updated_at = now()
returning id, plan, properties;
`

const QSelectUserByID = `--sql c35abd3a-706a-458e-aac7-f4298e300c45
select id, google_sub, email, name, avatar_url, locale_pref, plan, properties, created_at, updated_at
from users
where id = $1::uuid
limit 1;
`

const QConsumeUserQuota = `--sql 4a4a36fe-e794-43cb-bdf7-4c9d32f016cb
update users
set properties = jsonb_set(
        properties,
        '{quota_used_today}',
        (coalesce((properties->>'quota_used_today')::int, 0) + $2)::text::jsonb,
        true
    ),
    updated_at = now()
where id = $1::uuid
  and coalesce((properties->>'quota_used_today')::int, 0) + $2 <= coalesce((properties->>'quota_daily')::int, 5)
returning coalesce((properties->>'quota_daily')::int, 5) - coalesce((properties->>'quota_used_today')::int, 0);
`

const QUpdateUserPlan = `--sql aee4242e-6624-40dc-838c-c89cc675db5a
update users
set plan = $2,
    properties = jsonb_set(
        jsonb_set(properties, '{quota_daily}', $3::text::jsonb, true),
        '{quota_used_today}', '0'::jsonb, true
    ),
    updated_at = now()
where ($1::uuid is not null and id = $1::uuid)
   or ($4::text is not null and email = $4::text)
returning id, email, plan, properties;
`
